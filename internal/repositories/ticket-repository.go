package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"property-desk/internal/dto"
	"property-desk/internal/entities"
	db "property-desk/internal/infrastructure/bd"
	"property-desk/pkg/constants"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/types"
)

const ticketTable = "tickets"

var ticketSelectFields = []string{
	"t.id", "t.title", "t.description", "t.status", "t.priority", "t.property_id",
	"p.address", "t.metadata", "t.version", "t.created_at", "t.updated_at",
}

// ticketSortable - поля, по которым разрешена сортировка через sort[...]
var ticketSortable = map[string]string{
	"id":         "t.id",
	"title":      "t.title",
	"status":     "t.status",
	"priority":   "t.priority",
	"createdAt":  "t.created_at",
	"updatedAt":  "t.updated_at",
	"propertyId": "t.property_id",
}

type TicketRepositoryInterface interface {
	ListTickets(ctx context.Context, filter dto.TicketFilterDTO, params types.Filter) ([]entities.Ticket, error)
	FindTicket(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Ticket, error)
	FindTicketForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Ticket, error)
	CreateTicket(ctx context.Context, ticket entities.Ticket) (*entities.Ticket, error)
	// UpdateTicket записывает тикет целиком и увеличивает version.
	UpdateTicket(ctx context.Context, tx pgx.Tx, ticket entities.Ticket) (*entities.Ticket, error)
	// UpdateTicketIfVersion пишет только если в БД всё ещё expectedVersion.
	// ErrConflict - запись уже изменилась, ErrNotFound - её удалили.
	UpdateTicketIfVersion(ctx context.Context, ticket entities.Ticket, expectedVersion int64) (*entities.Ticket, error)
	SetStatus(ctx context.Context, id uint64, status constants.TicketStatus) (*entities.Ticket, error)
	DeleteTicket(ctx context.Context, id uint64) (*entities.Ticket, error)
	FindStaleProcessing(ctx context.Context, updatedBefore time.Time) ([]entities.Ticket, error)
}

type ticketRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewTicketRepository(storage *pgxpool.Pool, logger *zap.Logger) TicketRepositoryInterface {
	return &ticketRepository{storage: storage, logger: logger}
}

func (r *ticketRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func ticketSelect() sq.SelectBuilder {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(ticketSelectFields...).
		From(ticketTable + " t").
		LeftJoin("properties p ON p.id = t.property_id")
}

func scanTicket(row pgx.Row) (*entities.Ticket, error) {
	var (
		t        entities.Ticket
		status   string
		priority string
		metadata []byte
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &priority, &t.PropertyID,
		&t.PropertyAddress, &metadata, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	t.Status = constants.TicketStatus(status)
	t.Priority = constants.TicketPriority(strings.ToUpper(priority))
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("повреждена metadata тикета %d: %w", t.ID, err)
		}
	}
	return &t, nil
}

// escapeLike экранирует спецсимволы LIKE, поиск идёт по подстроке.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildListTicketsQuery собирает SELECT со всеми фильтрами. Поиск регистрозависимый.
func buildListTicketsQuery(filter dto.TicketFilterDTO, params types.Filter) sq.SelectBuilder {
	builder := ticketSelect()

	if filter.Status != nil && *filter.Status != "" {
		builder = builder.Where(sq.Eq{"t.status": strings.ToLower(*filter.Status)})
	}
	if filter.Priority != nil && *filter.Priority != "" {
		builder = builder.Where(sq.Eq{"t.priority": strings.ToUpper(*filter.Priority)})
	}
	if filter.PropertyID != nil {
		builder = builder.Where(sq.Eq{"t.property_id": *filter.PropertyID})
	}
	if filter.SearchQuery != "" {
		pattern := "%" + escapeLike(filter.SearchQuery) + "%"
		builder = builder.Where(sq.Or{
			sq.Like{"t.title": pattern},
			sq.Like{"t.description": pattern},
		})
	}

	builder = db.ApplyListParams(builder, params, ticketSortable)
	if len(params.Sort) == 0 {
		builder = builder.OrderBy("t.created_at DESC", "t.id DESC")
	}
	return builder
}

func (r *ticketRepository) ListTickets(ctx context.Context, filter dto.TicketFilterDTO, params types.Filter) ([]entities.Ticket, error) {
	query, args, err := buildListTicketsQuery(filter, params).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса ListTickets: %w", err)
	}
	return r.queryTickets(ctx, query, args...)
}

func (r *ticketRepository) queryTickets(ctx context.Context, query string, args ...interface{}) ([]entities.Ticket, error) {
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]entities.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (r *ticketRepository) FindTicket(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Ticket, error) {
	query, args, err := ticketSelect().Where(sq.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindTicket: %w", err)
	}
	return scanTicket(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *ticketRepository) FindTicketForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Ticket, error) {
	query, args, err := ticketSelect().Where(sq.Eq{"t.id": id}).Suffix("FOR UPDATE OF t").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindTicketForUpdate: %w", err)
	}
	return scanTicket(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *ticketRepository) CreateTicket(ctx context.Context, ticket entities.Ticket) (*entities.Ticket, error) {
	metadata, err := json.Marshal(ticket.Metadata)
	if err != nil {
		return nil, fmt.Errorf("не удалось сериализовать metadata: %w", err)
	}

	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert(ticketTable).
		Columns("title", "description", "status", "priority", "property_id", "metadata", "version", "created_at", "updated_at").
		Values(ticket.Title, ticket.Description, string(ticket.Status), string(ticket.Priority), ticket.PropertyID,
			metadata, 1, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса CreateTicket: %w", err)
	}

	var newID uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&newID); err != nil {
		return nil, translateWriteError(err, ticket.PropertyID)
	}
	return r.FindTicket(ctx, nil, newID)
}

func (r *ticketRepository) updateBuilder(ticket entities.Ticket) (sq.UpdateBuilder, error) {
	metadata, err := json.Marshal(ticket.Metadata)
	if err != nil {
		return sq.UpdateBuilder{}, fmt.Errorf("не удалось сериализовать metadata: %w", err)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Update(ticketTable).
		Set("title", ticket.Title).
		Set("description", ticket.Description).
		Set("status", string(ticket.Status)).
		Set("priority", string(ticket.Priority)).
		Set("property_id", ticket.PropertyID).
		Set("metadata", metadata).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("NOW()")), nil
}

func (r *ticketRepository) UpdateTicket(ctx context.Context, tx pgx.Tx, ticket entities.Ticket) (*entities.Ticket, error) {
	builder, err := r.updateBuilder(ticket)
	if err != nil {
		return nil, err
	}
	query, args, err := builder.Where(sq.Eq{"id": ticket.ID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса UpdateTicket: %w", err)
	}

	q := r.getQuerier(tx)
	result, err := q.Exec(ctx, query, args...)
	if err != nil {
		return nil, translateWriteError(err, ticket.PropertyID)
	}
	if result.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.FindTicket(ctx, tx, ticket.ID)
}

func (r *ticketRepository) UpdateTicketIfVersion(ctx context.Context, ticket entities.Ticket, expectedVersion int64) (*entities.Ticket, error) {
	builder, err := r.updateBuilder(ticket)
	if err != nil {
		return nil, err
	}
	query, args, err := builder.Where(sq.Eq{"id": ticket.ID, "version": expectedVersion}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса UpdateTicketIfVersion: %w", err)
	}

	result, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return nil, translateWriteError(err, ticket.PropertyID)
	}
	if result.RowsAffected() == 0 {
		if _, findErr := r.FindTicket(ctx, nil, ticket.ID); findErr != nil {
			return nil, findErr
		}
		return nil, apperrors.ErrConflict
	}
	return r.FindTicket(ctx, nil, ticket.ID)
}

func (r *ticketRepository) SetStatus(ctx context.Context, id uint64, status constants.TicketStatus) (*entities.Ticket, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Update(ticketTable).
		Set("status", string(status)).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса SetStatus: %w", err)
	}

	result, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.FindTicket(ctx, nil, id)
}

func (r *ticketRepository) DeleteTicket(ctx context.Context, id uint64) (*entities.Ticket, error) {
	var snapshot *entities.Ticket
	err := WithTx(ctx, r.storage, func(tx pgx.Tx) error {
		found, err := r.FindTicketForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
			Delete(ticketTable).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("ошибка сборки запроса DeleteTicket: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("ошибка удаления tickets: %w", err)
		}
		snapshot = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *ticketRepository) FindStaleProcessing(ctx context.Context, updatedBefore time.Time) ([]entities.Ticket, error) {
	query, args, err := ticketSelect().
		Where(sq.Eq{"t.status": string(constants.TicketStatusInProgressByAI)}).
		Where(sq.Lt{"t.updated_at": updatedBefore}).
		OrderBy("t.updated_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindStaleProcessing: %w", err)
	}
	return r.queryTickets(ctx, query, args...)
}

// translateWriteError переводит ошибки ограничений Postgres в ValidationError.
func translateWriteError(err error, propertyID uint64) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return apperrors.NewValidationError("propertyId", "объект недвижимости %d не существует", propertyID)
		case "23514", "23502":
			return apperrors.NewValidationError(pgErr.ColumnName, "недопустимое значение: %s", pgErr.Message)
		}
	}
	return fmt.Errorf("ошибка записи tickets: %w", err)
}
