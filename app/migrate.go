package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"property-desk/pkg/config"
	"property-desk/pkg/database/postgresql"
	applogger "property-desk/pkg/logger"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Управление миграциями БД",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Применить все новые миграции",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, run dbRun) error {
					if err := postgresql.Migrate(ctx, run.pool); err != nil {
						return err
					}
					run.logger.Info("Миграции применены")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Показать состояние миграций",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, run dbRun) error {
					return postgresql.MigrationStatus(ctx, run.pool)
				})
			},
		},
	)
	return cmd
}

type dbRun struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// withDB открывает пул по конфигурации и закрывает его после fn.
func withDB(ctx context.Context, fn func(ctx context.Context, run dbRun) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer logger.Sync()

	pool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Error("Не удалось подключиться к БД", zap.Error(err))
		return err
	}
	defer pool.Close()

	return fn(ctx, dbRun{pool: pool, logger: logger})
}
