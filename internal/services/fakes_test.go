package services

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"property-desk/internal/dto"
	"property-desk/internal/entities"
	intdto "property-desk/internal/integrations/dto"
	"property-desk/internal/repositories"
	"property-desk/pkg/constants"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/types"
)

type memoryTicketRepo struct {
	mu         sync.Mutex
	tickets    map[uint64]entities.Ticket
	properties map[uint64]string
	nextID     uint64
	listErr    error
	deleteErr  error
	// beforeVersionedUpdate вызывается перед условной записью результата AI.
	beforeVersionedUpdate func(id uint64)
}

func newMemoryTicketRepo() *memoryTicketRepo {
	return &memoryTicketRepo{
		tickets:    make(map[uint64]entities.Ticket),
		properties: map[uint64]string{1: "221B Baker Street"},
	}
}

func (r *memoryTicketRepo) withAddress(t entities.Ticket) *entities.Ticket {
	if addr, ok := r.properties[t.PropertyID]; ok {
		t.PropertyAddress = &addr
	}
	return &t
}

func (r *memoryTicketRepo) ListTickets(_ context.Context, filter dto.TicketFilterDTO, _ types.Filter) ([]entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]entities.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if filter.Status != nil && string(t.Status) != *filter.Status {
			continue
		}
		out = append(out, *r.withAddress(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryTicketRepo) FindTicket(_ context.Context, _ pgx.Tx, id uint64) (*entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.withAddress(t), nil
}

func (r *memoryTicketRepo) FindTicketForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Ticket, error) {
	return r.FindTicket(ctx, tx, id)
}

func (r *memoryTicketRepo) CreateTicket(_ context.Context, ticket entities.Ticket) (*entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.properties[ticket.PropertyID]; !ok {
		return nil, apperrors.NewValidationError("propertyId", "объект недвижимости %d не существует", ticket.PropertyID)
	}
	r.nextID++
	now := time.Now()
	ticket.ID = r.nextID
	ticket.Version = 1
	ticket.CreatedAt, ticket.UpdatedAt = now, now
	r.tickets[ticket.ID] = ticket
	return r.withAddress(ticket), nil
}

func (r *memoryTicketRepo) store(ticket entities.Ticket) *entities.Ticket {
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = ticket
	return r.withAddress(ticket)
}

func (r *memoryTicketRepo) UpdateTicket(_ context.Context, _ pgx.Tx, ticket entities.Ticket) (*entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tickets[ticket.ID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if _, ok := r.properties[ticket.PropertyID]; !ok {
		return nil, apperrors.NewValidationError("propertyId", "объект недвижимости %d не существует", ticket.PropertyID)
	}
	ticket.Version = current.Version
	ticket.CreatedAt = current.CreatedAt
	return r.store(ticket), nil
}

func (r *memoryTicketRepo) UpdateTicketIfVersion(_ context.Context, ticket entities.Ticket, expectedVersion int64) (*entities.Ticket, error) {
	if r.beforeVersionedUpdate != nil {
		r.beforeVersionedUpdate(ticket.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tickets[ticket.ID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, apperrors.ErrConflict
	}
	ticket.Version = current.Version
	ticket.CreatedAt = current.CreatedAt
	return r.store(ticket), nil
}

func (r *memoryTicketRepo) SetStatus(_ context.Context, id uint64, status constants.TicketStatus) (*entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	current.Status = status
	return r.store(current), nil
}

func (r *memoryTicketRepo) DeleteTicket(_ context.Context, id uint64) (*entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return nil, r.deleteErr
	}
	current, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	delete(r.tickets, id)
	return r.withAddress(current), nil
}

func (r *memoryTicketRepo) FindStaleProcessing(_ context.Context, updatedBefore time.Time) ([]entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.Ticket
	for _, t := range r.tickets {
		if t.Status == constants.TicketStatusInProgressByAI && t.UpdatedAt.Before(updatedBefore) {
			out = append(out, t)
		}
	}
	return out, nil
}

// put кладёт заявку как есть, минуя version и updated_at.
func (r *memoryTicketRepo) put(t entities.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID > r.nextID {
		r.nextID = t.ID
	}
	r.tickets[t.ID] = t
}

type inlineTxManager struct{}

func (inlineTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type stubGenerator struct {
	resolution     *intdto.IssueResolution
	issue          *intdto.GeneratedIssue
	classification *intdto.IssueClassification
	err            error
	panicOnResolve bool
	classifyCalls  atomic.Int32
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Classify(_ context.Context, _ string) (*intdto.IssueClassification, error) {
	g.classifyCalls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return g.classification, nil
}

func (g *stubGenerator) GenerateIssue(_ context.Context) (*intdto.GeneratedIssue, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.issue, nil
}

func (g *stubGenerator) ResolveIssue(_ context.Context, _ string) (*intdto.IssueResolution, error) {
	if g.panicOnResolve {
		panic("generator exploded")
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.resolution, nil
}

type publishedEvent struct {
	topic   string
	payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(_ context.Context, topic string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{topic: topic, payload: payload})
	return nil
}

func (n *recordingNotifier) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

func (n *recordingNotifier) topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.topic
	}
	return out
}

func (n *recordingNotifier) last() publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]string)}
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value.(string)
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.values[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}
