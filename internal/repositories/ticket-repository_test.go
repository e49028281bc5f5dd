package repositories

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"property-desk/internal/dto"
	"property-desk/internal/entities"
	"property-desk/pkg/constants"
	"property-desk/pkg/database/postgresql"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/types"
)

var testPool *pgxpool.Pool

// TestMain поднимает соединение с тестовой БД, только если задан TEST_DATABASE_URL.
func TestMain(m *testing.M) {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		ctx := context.Background()
		pool, err := postgresql.ConnectDB(ctx, dsn)
		if err != nil {
			log.Fatalf("Не удалось подключиться к тестовой БД: %v", err)
		}
		if err := postgresql.Migrate(ctx, pool); err != nil {
			log.Fatalf("Не удалось применить миграции: %v", err)
		}
		testPool = pool
	}

	code := m.Run()
	if testPool != nil {
		testPool.Close()
	}
	os.Exit(code)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestBuildListTicketsQuery_NoFilters(t *testing.T) {
	query, args, err := buildListTicketsQuery(dto.TicketFilterDTO{}, types.Filter{}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM tickets t LEFT JOIN properties p ON p.id = t.property_id")
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY t.created_at DESC, t.id DESC")
	assert.Empty(t, args)
}

func TestBuildListTicketsQuery_AllFilters(t *testing.T) {
	propertyID := uint64(7)
	filter := dto.TicketFilterDTO{
		Status:      strPtr("RESOLVED"),
		Priority:    strPtr("medium"),
		PropertyID:  &propertyID,
		SearchQuery: "le%ak",
	}

	query, args, err := buildListTicketsQuery(filter, types.Filter{}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "t.status = $1")
	assert.Contains(t, query, "t.priority = $2")
	assert.Contains(t, query, "t.property_id = $3")
	assert.Contains(t, query, "(t.title LIKE $4 OR t.description LIKE $5)")
	assert.NotContains(t, query, "ILIKE", "поиск должен быть регистрозависимым")
	assert.Equal(t, []interface{}{"resolved", "MEDIUM", uint64(7), `%le\%ak%`, `%le\%ak%`}, args)
}

func TestBuildListTicketsQuery_SortAndPagination(t *testing.T) {
	params := types.Filter{
		Sort:           map[string]string{"createdAt": "asc", "unknown": "desc"},
		Limit:          10,
		Offset:         20,
		WithPagination: true,
	}

	query, _, err := buildListTicketsQuery(dto.TicketFilterDTO{}, params).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "ORDER BY t.created_at ASC")
	assert.NotContains(t, query, "unknown")
	assert.NotContains(t, query, "t.id DESC")
	assert.Contains(t, query, "LIMIT 10")
	assert.Contains(t, query, "OFFSET 20")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_done\\`, escapeLike(`100%_done\`))
	assert.Equal(t, "leak", escapeLike("leak"))
}

// ---- интеграционные тесты ----

func requireDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testPool == nil {
		t.Skip("TEST_DATABASE_URL не задан")
	}
	_, err := testPool.Exec(context.Background(), `TRUNCATE TABLE tickets, properties RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "Не удалось очистить таблицы")
	return testPool
}

func seedProperty(t *testing.T, pool *pgxpool.Pool, address string) uint64 {
	t.Helper()
	var id uint64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO properties (name, address) VALUES ('Test', $1) RETURNING id`, address).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestTicketRepository_Integration_Lifecycle(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	repo := NewTicketRepository(pool, zap.NewNop())
	propertyID := seedProperty(t, pool, "12 Main St")

	created, err := repo.CreateTicket(ctx, entities.Ticket{
		Title:       "Leaky faucet",
		Description: "Kitchen faucet leaks",
		Status:      constants.TicketStatusOpen,
		Priority:    constants.TicketPriorityMedium,
		PropertyID:  propertyID,
		Metadata:    entities.Metadata{UseAI: boolPtr(true), Notes: strPtr("n")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)
	require.NotNil(t, created.PropertyAddress)
	assert.Equal(t, "12 Main St", *created.PropertyAddress)
	assert.Equal(t, "n", *created.Metadata.Notes)

	processing, err := repo.SetStatus(ctx, created.ID, constants.TicketStatusInProgressByAI)
	require.NoError(t, err)
	assert.Equal(t, int64(2), processing.Version)

	stale := *processing
	stale.Title = "from stale version"
	_, err = repo.UpdateTicketIfVersion(ctx, stale, 1)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	resolved := *processing
	resolved.Status = constants.TicketStatusResolved
	updated, err := repo.UpdateTicketIfVersion(ctx, resolved, processing.Version)
	require.NoError(t, err)
	assert.Equal(t, constants.TicketStatusResolved, updated.Status)
	assert.Equal(t, int64(3), updated.Version)

	list, err := repo.ListTickets(ctx, dto.TicketFilterDTO{SearchQuery: "faucet"}, types.Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = repo.ListTickets(ctx, dto.TicketFilterDTO{SearchQuery: "Faucet"}, types.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	deleted, err := repo.DeleteTicket(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = repo.FindTicket(ctx, nil, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.UpdateTicketIfVersion(ctx, resolved, updated.Version)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTicketRepository_Integration_UnknownProperty(t *testing.T) {
	pool := requireDB(t)
	repo := NewTicketRepository(pool, zap.NewNop())

	_, err := repo.CreateTicket(context.Background(), entities.Ticket{
		Title:       "Broken door",
		Description: "Front door",
		Status:      constants.TicketStatusOpen,
		Priority:    constants.TicketPriorityHigh,
		PropertyID:  999,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTicketRepository_Integration_FindStaleProcessing(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	repo := NewTicketRepository(pool, zap.NewNop())
	propertyID := seedProperty(t, pool, "1 Elm St")

	ticket, err := repo.CreateTicket(ctx, entities.Ticket{
		Title: "Heater", Description: "No heat", Status: constants.TicketStatusInProgressByAI,
		Priority: constants.TicketPriorityUrgent, PropertyID: propertyID,
	})
	require.NoError(t, err)

	stale, err := repo.FindStaleProcessing(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, ticket.ID, stale[0].ID)

	fresh, err := repo.FindStaleProcessing(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, fresh)
}
