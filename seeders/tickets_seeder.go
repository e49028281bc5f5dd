package seeders

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const insertTicketQuery = `
	INSERT INTO tickets (title, description, priority, status, property_id, metadata)
	SELECT $1, $2, $3, $4, p.id, $6::jsonb
	FROM properties p
	WHERE p.address = $5
	  AND NOT EXISTS (SELECT 1 FROM tickets t WHERE t.property_id = p.id AND t.title = $1)
	LIMIT 1`

func seedTickets(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) error {
	logger.Info("  - Наполнение таблицы 'tickets'...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, t := range ticketsData {
		tag, err := tx.Exec(ctx, insertTicketQuery, t.Title, t.Description, t.Priority, t.Status, t.PropertyAddress, t.Metadata)
		if err != nil {
			logger.Error("Ошибка при вставке заявки", zap.String("title", t.Title), zap.Error(err))
			return err
		}
		if tag.RowsAffected() == 0 {
			logger.Warn("    - Заявка пропущена: объект не найден или заявка уже есть", zap.String("title", t.Title))
		}
		inserted += int(tag.RowsAffected())
	}

	logger.Info("    - Заявки добавлены", zap.Int("inserted", inserted))
	return tx.Commit(ctx)
}
