package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/boostly/internal/domain"
	"github.com/shopspring/decimal"
)

// repo runs against state with the store mutex already held.
type repo struct {
	st *state
}

func (r *repo) ReserveBalance(_ context.Context, ownerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	available := r.st.balances[ownerID]
	if available.LessThan(amount) {
		return decimal.Zero, domain.ErrInsufficientBalance
	}
	available = available.Sub(amount)
	r.st.balances[ownerID] = available
	return available, nil
}

func (r *repo) CreditBalance(_ context.Context, ownerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	available := r.st.balances[ownerID].Add(amount)
	r.st.balances[ownerID] = available
	return available, nil
}

func (r *repo) GetBalance(_ context.Context, ownerID string) (domain.BalanceAccount, error) {
	return domain.BalanceAccount{OwnerID: ownerID, Available: r.st.balances[ownerID]}, nil
}

func (r *repo) CreateTransaction(_ context.Context, tx domain.Transaction) error {
	tx.ID = int64(len(r.st.transactions) + 1)
	r.st.transactions = append(r.st.transactions, tx)
	return nil
}

func (r *repo) CreateOrder(_ context.Context, o *domain.Order) error {
	if _, ok := r.st.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	r.st.orders[o.ID] = copyOrder(o)
	r.st.orderSeq = append(r.st.orderSeq, o.ID)
	return nil
}

func (r *repo) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (r *repo) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.GetOrder(ctx, id)
}

func (r *repo) ListBatchOrders(_ context.Context, batchID uuid.UUID) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, id := range r.st.orderSeq {
		if o := r.st.orders[id]; o.BatchID == batchID {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (r *repo) TransitionOrder(_ context.Context, id uuid.UUID, from, to domain.OrderStatus, reason string, at time.Time) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	o, ok := r.st.orders[id]
	if !ok || o.Status != from {
		return domain.ErrConcurrencyConflict
	}
	o.Status = to
	o.FailureReason = reason
	o.UpdatedAt = at
	return nil
}

func (r *repo) CreateTask(_ context.Context, t *domain.Task) error {
	if _, ok := r.st.orders[t.SourceOrderID]; !ok {
		return fmt.Errorf("task %s: %w", t.ID, domain.ErrOrderNotFound)
	}
	for _, id := range r.st.taskSeq {
		if e := r.st.tasks[id]; e.SourceOrderID == t.SourceOrderID && e.LineIndex == t.LineIndex {
			return fmt.Errorf("task for order %s line %d already exists", t.SourceOrderID, t.LineIndex)
		}
	}
	c := *t
	r.st.tasks[t.ID] = &c
	r.st.taskSeq = append(r.st.taskSeq, t.ID)
	return nil
}

func (r *repo) GetTaskForUpdate(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	t, ok := r.st.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	c := *t
	return &c, nil
}

func (r *repo) UpdateTask(_ context.Context, t *domain.Task) error {
	if _, ok := r.st.tasks[t.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	if t.RemainingQuantity < 0 {
		return fmt.Errorf("task %s: negative remaining quantity", t.ID)
	}
	c := *t
	r.st.tasks[t.ID] = &c
	return nil
}

func (r *repo) ArchiveOrderTasks(_ context.Context, orderID uuid.UUID, at time.Time) error {
	for _, id := range r.st.taskSeq {
		t := r.st.tasks[id]
		if t.SourceOrderID != orderID || t.ArchivedAt != nil {
			continue
		}
		archivedAt := at
		t.ArchivedAt = &archivedAt
		t.Status = domain.TaskStatusCompleted
		t.CooldownEndsAt = nil
	}
	return nil
}

func (r *repo) CountOpenTasks(_ context.Context, orderID uuid.UUID) (int, error) {
	n := 0
	for _, t := range r.st.tasks {
		if t.SourceOrderID == orderID && t.ArchivedAt == nil && t.RemainingQuantity > 0 {
			n++
		}
	}
	return n, nil
}

func (r *repo) HasExecuted(_ context.Context, taskID uuid.UUID, actorID string) (bool, error) {
	_, ok := r.st.executed[execKey{taskID: taskID, actorID: actorID}]
	return ok, nil
}

func (r *repo) CreateExecution(_ context.Context, e domain.TaskExecution) error {
	r.st.executions = append(r.st.executions, e)
	r.st.executed[execKey{taskID: e.TaskID, actorID: e.ActorID}] = struct{}{}
	return nil
}

func (r *repo) ListCandidateTasks(_ context.Context, f domain.TaskFilter, now time.Time) ([]*domain.Task, error) {
	var out []*domain.Task
	for _, id := range r.st.taskSeq {
		t := r.st.tasks[id]
		switch {
		case t.ArchivedAt != nil, t.RemainingQuantity <= 0, t.OwnerID == f.ActorID:
			continue
		case f.Platform != "" && t.Platform != f.Platform:
			continue
		case f.Type != "" && t.Type != f.Type:
			continue
		case t.CooldownEndsAt != nil && now.Before(*t.CooldownEndsAt):
			continue
		}
		if !t.Type.Repeatable() {
			if _, done := r.st.executed[execKey{taskID: t.ID, actorID: f.ActorID}]; done {
				continue
			}
		}
		c := *t
		out = append(out, &c)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (r *repo) CreateTicket(_ context.Context, t *domain.Ticket) error {
	if _, ok := r.st.orders[t.OrderID]; !ok {
		return domain.ErrOrderNotFound
	}
	c := *t
	r.st.tickets[t.ID] = &c
	return nil
}

func (r *repo) CheckAndIncrementRateLimit(_ context.Context, key string, window time.Time) (int, error) {
	k := rateKey{key: key, window: window}
	r.st.rateLimits[k]++
	return r.st.rateLimits[k], nil
}

func (r *repo) DeleteStaleRateLimits(_ context.Context, before time.Time) error {
	for k := range r.st.rateLimits {
		if k.window.Before(before) {
			delete(r.st.rateLimits, k)
		}
	}
	return nil
}
