// Package memory is an in-process implementation of the service
// repository contract. A single mutex serializes every operation and
// WithinTx restores a snapshot when its function fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/boostly/internal/domain"
	"github.com/set-night/boostly/internal/service"
	"github.com/shopspring/decimal"
)

type execKey struct {
	taskID  uuid.UUID
	actorID string
}

type rateKey struct {
	key    string
	window time.Time
}

type state struct {
	balances     map[string]decimal.Decimal
	transactions []domain.Transaction
	orders       map[uuid.UUID]*domain.Order
	orderSeq     []uuid.UUID
	tasks        map[uuid.UUID]*domain.Task
	taskSeq      []uuid.UUID
	executions   []domain.TaskExecution
	executed     map[execKey]struct{}
	tickets      map[uuid.UUID]*domain.Ticket
	rateLimits   map[rateKey]int
}

func newState() *state {
	return &state{
		balances:   make(map[string]decimal.Decimal),
		orders:     make(map[uuid.UUID]*domain.Order),
		tasks:      make(map[uuid.UUID]*domain.Task),
		executed:   make(map[execKey]struct{}),
		tickets:    make(map[uuid.UUID]*domain.Ticket),
		rateLimits: make(map[rateKey]int),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.balances {
		c.balances[k] = v
	}
	c.transactions = append([]domain.Transaction(nil), s.transactions...)
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	c.orderSeq = append([]uuid.UUID(nil), s.orderSeq...)
	for k, v := range s.tasks {
		t := *v
		c.tasks[k] = &t
	}
	c.taskSeq = append([]uuid.UUID(nil), s.taskSeq...)
	c.executions = append([]domain.TaskExecution(nil), s.executions...)
	for k := range s.executed {
		c.executed[k] = struct{}{}
	}
	for k, v := range s.tickets {
		t := *v
		c.tickets[k] = &t
	}
	for k, v := range s.rateLimits {
		c.rateLimits[k] = v
	}
	return c
}

func copyOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &c
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ service.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(service.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&repo{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) locked() (*repo, func()) {
	s.mu.Lock()
	return &repo{st: s.st}, s.mu.Unlock
}

func (s *Store) ReserveBalance(ctx context.Context, ownerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ReserveBalance(ctx, ownerID, amount)
}

func (s *Store) CreditBalance(ctx context.Context, ownerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.CreditBalance(ctx, ownerID, amount)
}

func (s *Store) GetBalance(ctx context.Context, ownerID string) (domain.BalanceAccount, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.GetBalance(ctx, ownerID)
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) error {
	r, unlock := s.locked()
	defer unlock()
	return r.CreateTransaction(ctx, tx)
}

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	r, unlock := s.locked()
	defer unlock()
	return r.CreateOrder(ctx, o)
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.GetOrder(ctx, id)
}

func (s *Store) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.GetOrderForUpdate(ctx, id)
}

func (s *Store) ListBatchOrders(ctx context.Context, batchID uuid.UUID) ([]*domain.Order, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ListBatchOrders(ctx, batchID)
}

func (s *Store) TransitionOrder(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, reason string, at time.Time) error {
	r, unlock := s.locked()
	defer unlock()
	return r.TransitionOrder(ctx, id, from, to, reason, at)
}

func (s *Store) CreateTask(ctx context.Context, t *domain.Task) error {
	r, unlock := s.locked()
	defer unlock()
	return r.CreateTask(ctx, t)
}

// GetTaskForUpdate outside WithinTx only reads; the lock ends on return.
func (s *Store) GetTaskForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.GetTaskForUpdate(ctx, id)
}

func (s *Store) UpdateTask(ctx context.Context, t *domain.Task) error {
	r, unlock := s.locked()
	defer unlock()
	return r.UpdateTask(ctx, t)
}

func (s *Store) ArchiveOrderTasks(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	r, unlock := s.locked()
	defer unlock()
	return r.ArchiveOrderTasks(ctx, orderID, at)
}

func (s *Store) CountOpenTasks(ctx context.Context, orderID uuid.UUID) (int, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.CountOpenTasks(ctx, orderID)
}

func (s *Store) HasExecuted(ctx context.Context, taskID uuid.UUID, actorID string) (bool, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.HasExecuted(ctx, taskID, actorID)
}

func (s *Store) CreateExecution(ctx context.Context, e domain.TaskExecution) error {
	r, unlock := s.locked()
	defer unlock()
	return r.CreateExecution(ctx, e)
}

func (s *Store) ListCandidateTasks(ctx context.Context, f domain.TaskFilter, now time.Time) ([]*domain.Task, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ListCandidateTasks(ctx, f, now)
}

func (s *Store) CreateTicket(ctx context.Context, t *domain.Ticket) error {
	r, unlock := s.locked()
	defer unlock()
	return r.CreateTicket(ctx, t)
}

func (s *Store) CheckAndIncrementRateLimit(ctx context.Context, key string, window time.Time) (int, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.CheckAndIncrementRateLimit(ctx, key, window)
}

func (s *Store) DeleteStaleRateLimits(ctx context.Context, before time.Time) error {
	r, unlock := s.locked()
	defer unlock()
	return r.DeleteStaleRateLimits(ctx, before)
}

// Transactions returns the journal of an owner, oldest first.
func (s *Store) Transactions(ownerID string) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range s.st.transactions {
		if tx.OwnerID == ownerID {
			out = append(out, tx)
		}
	}
	return out
}

// Tasks returns every task spawned for an order, by line.
func (s *Store) Tasks(orderID uuid.UUID) []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Task
	for _, id := range s.st.taskSeq {
		if t := s.st.tasks[id]; t.SourceOrderID == orderID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineIndex < out[j].LineIndex })
	return out
}

// Tickets returns the tickets filed against an order.
func (s *Store) Tickets(orderID uuid.UUID) []*domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Ticket
	for _, t := range s.st.tickets {
		if t.OrderID == orderID {
			c := *t
			out = append(out, &c)
		}
	}
	return out
}
