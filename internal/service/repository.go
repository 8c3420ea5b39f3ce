package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/boostly/internal/domain"
	"github.com/shopspring/decimal"
)

// Repository is the persistence contract of the core. Every method is
// atomic on its own; WithinTx groups several into one unit of work.
type Repository interface {
	// ReserveBalance deducts amount only if the available balance covers
	// it, in a single conditional update. It returns
	// domain.ErrInsufficientBalance otherwise.
	ReserveBalance(ctx context.Context, ownerID string, amount decimal.Decimal) (decimal.Decimal, error)
	CreditBalance(ctx context.Context, ownerID string, amount decimal.Decimal) (decimal.Decimal, error)
	GetBalance(ctx context.Context, ownerID string) (domain.BalanceAccount, error)
	CreateTransaction(ctx context.Context, tx domain.Transaction) error

	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// GetOrderForUpdate loads an order and holds its lock until the
	// enclosing transaction ends. Lines may be left empty.
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListBatchOrders(ctx context.Context, batchID uuid.UUID) ([]*domain.Order, error)
	// TransitionOrder moves an order from one status to another. It returns
	// domain.ErrConcurrencyConflict when the order is no longer in from.
	TransitionOrder(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, reason string, at time.Time) error

	CreateTask(ctx context.Context, t *domain.Task) error
	// GetTaskForUpdate loads a task and holds its lock until the enclosing
	// transaction ends.
	GetTaskForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	UpdateTask(ctx context.Context, t *domain.Task) error
	ArchiveOrderTasks(ctx context.Context, orderID uuid.UUID, at time.Time) error
	CountOpenTasks(ctx context.Context, orderID uuid.UUID) (int, error)
	HasExecuted(ctx context.Context, taskID uuid.UUID, actorID string) (bool, error)
	CreateExecution(ctx context.Context, e domain.TaskExecution) error
	// ListCandidateTasks returns open tasks not owned by f.ActorID whose
	// cooldown has ended by now, skipping follow/subscribe tasks the actor
	// already executed.
	ListCandidateTasks(ctx context.Context, f domain.TaskFilter, now time.Time) ([]*domain.Task, error)

	CreateTicket(ctx context.Context, t *domain.Ticket) error

	CheckAndIncrementRateLimit(ctx context.Context, key string, window time.Time) (int, error)
	DeleteStaleRateLimits(ctx context.Context, before time.Time) error
}

// Store is a Repository that can run a function inside a transaction. The
// transaction is committed when fn returns nil and rolled back otherwise.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(Repository) error) error
}

// Notifier receives operational events worth an operator's attention.
type Notifier interface {
	OrderFailed(o *domain.Order)
	IssueReported(o *domain.Order, t *domain.Ticket)
	PaymentFailed(outcome domain.PaymentOutcome)
	Error(err error, context string)
}

type NopNotifier struct{}

func (NopNotifier) OrderFailed(*domain.Order)                   {}
func (NopNotifier) IssueReported(*domain.Order, *domain.Ticket) {}
func (NopNotifier) PaymentFailed(domain.PaymentOutcome)         {}
func (NopNotifier) Error(error, string)                         {}
