package seeders

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Адрес - естественный ключ сида: повторный запуск не создаёт дублей.
const insertPropertyQuery = `
	INSERT INTO properties (name, address)
	SELECT $1, $2
	WHERE NOT EXISTS (SELECT 1 FROM properties WHERE address = $2)`

func seedProperties(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) error {
	logger.Info("  - Наполнение таблицы 'properties'...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, p := range propertiesData {
		tag, err := tx.Exec(ctx, insertPropertyQuery, p.Name, p.Address)
		if err != nil {
			logger.Error("Ошибка при вставке объекта", zap.String("address", p.Address), zap.Error(err))
			return err
		}
		inserted += int(tag.RowsAffected())
	}

	logger.Info("    - Объекты добавлены", zap.Int("inserted", inserted), zap.Int("total", len(propertiesData)))
	return tx.Commit(ctx)
}
