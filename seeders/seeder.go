package seeders

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// SeedProperties наполняет справочник объектов недвижимости.
func SeedProperties(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) error {
	logger.Info("▶️  Запуск наполнения объектов недвижимости...")
	if err := seedProperties(ctx, db, logger); err != nil {
		logger.Error("❌ Ошибка наполнения объектов (Properties)", zap.Error(err))
		return err
	}
	logger.Info("✅ Наполнение объектов завершено!")
	return nil
}

// SeedDemoTickets создаёт несколько заявок для демонстрации. Зависит от SeedProperties.
func SeedDemoTickets(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) error {
	logger.Info("▶️  Запуск наполнения демо-заявок...")
	if err := seedTickets(ctx, db, logger); err != nil {
		logger.Error("❌ Ошибка наполнения заявок (Tickets)", zap.Error(err))
		return err
	}
	logger.Info("✅ Наполнение демо-заявок завершено!")
	return nil
}
