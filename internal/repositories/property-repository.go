package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"property-desk/internal/entities"
	db "property-desk/internal/infrastructure/bd"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/types"
)

const propertyTable = "properties"

var propertySelectFields = []string{"id", "name", "address", "created_at", "updated_at"}

var propertySortable = map[string]string{
	"id":        "id",
	"name":      "name",
	"address":   "address",
	"createdAt": "created_at",
}

type PropertyRepositoryInterface interface {
	ListProperties(ctx context.Context, params types.Filter) ([]entities.Property, error)
	FindProperty(ctx context.Context, id uint64) (*entities.Property, error)
	CreateProperty(ctx context.Context, property entities.Property) (*entities.Property, error)
	CountProperties(ctx context.Context, params types.Filter) (uint64, error)
}

type propertyRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewPropertyRepository(storage *pgxpool.Pool, logger *zap.Logger) PropertyRepositoryInterface {
	return &propertyRepository{storage: storage, logger: logger}
}

func scanProperty(row pgx.Row) (*entities.Property, error) {
	var p entities.Property
	if err := row.Scan(&p.ID, &p.Name, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func withPropertySearch(builder sq.SelectBuilder, search string) sq.SelectBuilder {
	if search == "" {
		return builder
	}
	return builder.Where(sq.Or{
		sq.ILike{"name": "%" + escapeLike(search) + "%"},
		sq.ILike{"address": "%" + escapeLike(search) + "%"},
	})
}

func buildListPropertiesQuery(params types.Filter) sq.SelectBuilder {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(propertySelectFields...).
		From(propertyTable)
	builder = withPropertySearch(builder, params.Search)
	builder = db.ApplyListParams(builder, params, propertySortable)
	if len(params.Sort) == 0 {
		builder = builder.OrderBy("id ASC")
	}
	return builder
}

func (r *propertyRepository) ListProperties(ctx context.Context, params types.Filter) ([]entities.Property, error) {
	query, args, err := buildListPropertiesQuery(params).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса ListProperties: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	properties := make([]entities.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}

func (r *propertyRepository) FindProperty(ctx context.Context, id uint64) (*entities.Property, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(propertySelectFields...).
		From(propertyTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindProperty: %w", err)
	}
	return scanProperty(r.storage.QueryRow(ctx, query, args...))
}

func (r *propertyRepository) CreateProperty(ctx context.Context, property entities.Property) (*entities.Property, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert(propertyTable).
		Columns("name", "address", "created_at", "updated_at").
		Values(property.Name, property.Address, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING id, name, address, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса CreateProperty: %w", err)
	}
	created, err := scanProperty(r.storage.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("ошибка записи properties: %w", err)
	}
	return created, nil
}

// CountProperties учитывает только поиск, без limit/offset.
func (r *propertyRepository) CountProperties(ctx context.Context, params types.Filter) (uint64, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).Select("COUNT(*)").From(propertyTable)
	query, args, err := withPropertySearch(builder, params.Search).ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса CountProperties: %w", err)
	}
	var count uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
