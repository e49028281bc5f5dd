package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"property-desk/internal/infrastructure/pubsub"
	"property-desk/internal/integrations"
	"property-desk/internal/integrations/fallback"
	"property-desk/internal/integrations/openai"
	"property-desk/internal/listeners"
	"property-desk/internal/repositories"
	"property-desk/internal/routes"
	"property-desk/internal/services"
	"property-desk/pkg/config"
	"property-desk/pkg/database/postgresql"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/eventbus"
	applogger "property-desk/pkg/logger"
	"property-desk/pkg/metrics"
	"property-desk/pkg/middleware"
	"property-desk/pkg/service"
	"property-desk/pkg/telegram"
	"property-desk/pkg/utils"
	"property-desk/pkg/validation"
	appwebsocket "property-desk/pkg/websocket"
)

var autoMigrate = true

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-сервер",
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "Применить миграции перед стартом")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer logger.Sync()

	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if autoMigrate {
		if err := postgresql.Migrate(ctx, dbConn); err != nil {
			return err
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("не удалось подключиться к Redis %s: %w", cfg.Redis.Address, err)
	}

	bus := eventbus.New(logger)
	notifier, err := newNotifier(cfg.Notifier, bus, redisClient, logger)
	if err != nil {
		return err
	}

	generator := newTextGenerator(cfg.OpenAI, logger)

	ticketRepo := repositories.NewTicketRepository(dbConn, logger)
	propertyRepo := repositories.NewPropertyRepository(dbConn, logger)
	txManager := repositories.NewTxManager(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient, "property-desk:")

	processingMetrics := metrics.Processing()
	processor := services.NewTicketProcessor(ticketRepo, generator, notifier, cfg.Processing, logger,
		services.WithMetrics(processingMetrics))
	ticketService := services.NewTicketService(ticketRepo, txManager, processor, generator, cacheRepo, notifier,
		cfg.Processing.ClassifyCacheTTL, processingMetrics, logger)

	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL)

	hub := appwebsocket.NewHub(logger)
	go hub.Run(ctx)

	listener := listeners.NewTicketBroadcastListener(notifier, hub, logger)
	if err := listener.Start(ctx); err != nil {
		return err
	}

	var alerts *listeners.ManualReviewAlertListener
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		alerts = listeners.NewManualReviewAlertListener(notifier, telegram.NewService(cfg.Telegram.BotToken), cfg.Telegram.ChatID, logger)
		if err := alerts.Start(ctx); err != nil {
			return err
		}
	}

	scheduler := services.NewRecoveryScheduler(processor, cfg.Processing.RecoverySchedule, logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	e := newEcho(cfg, logger)
	routes.InitRouter(e, routes.Dependencies{
		TicketService:   ticketService,
		PropertyService: services.NewPropertyService(propertyRepo, logger),
		AuthService:     services.NewAuthService(jwtSvc, cfg.Auth, logger),
		Exporter:        services.NewTicketExporter(),
		Hub:             hub,
		JWT:             jwtSvc,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
	}, &routes.Loggers{
		Main:   logger,
		Auth:   logger.Named("auth"),
		Ticket: logger.Named("tickets"),
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Ошибка запуска сервера", zap.Error(err))
			return err
		}
	case <-ctx.Done():
		logger.Info("Получен сигнал завершения")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки HTTP-сервера", zap.Error(err))
	}
	scheduler.Stop()
	// незавершённые задачи подберёт проход восстановления при следующем старте
	if err := processor.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Не все AI-задачи завершились", zap.Error(err))
	}
	stop()
	listener.Wait()
	if alerts != nil {
		alerts.Wait()
	}

	logger.Info("Сервер остановлен")
	return nil
}

func newEcho(cfg *config.Config, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.InjectLogger(logger))

	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition, echo.HeaderXRequestID},
	}))

	return e
}

// newNotifier - memory работает в пределах процесса, redis рассылает всем экземплярам.
func newNotifier(cfg config.NotifierConfig, bus *eventbus.Bus, redisClient *redis.Client, logger *zap.Logger) (services.TicketNotifierInterface, error) {
	switch cfg.Backend {
	case "", "memory":
		return pubsub.NewBusNotifier(bus), nil
	case "redis":
		return pubsub.NewRedisNotifier(redisClient, logger), nil
	default:
		return nil, fmt.Errorf("неизвестный NOTIFIER_BACKEND %q", cfg.Backend)
	}
}

func newTextGenerator(cfg config.OpenAIConfig, logger *zap.Logger) integrations.TextGenerator {
	registry := integrations.NewRegistry()
	local := fallback.New(nil)

	if cfg.APIKey != "" {
		if err := registry.Register(openai.New(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout, logger)); err != nil {
			logger.Warn("Не удалось зарегистрировать OpenAI", zap.Error(err))
		}
	} else {
		logger.Warn("OPENAI_API_KEY не задан, используется локальный генератор")
	}
	if err := registry.Register(local); err != nil {
		logger.Warn("Не удалось зарегистрировать fallback", zap.Error(err))
	}

	return integrations.NewResilient(registry, local, logger)
}
