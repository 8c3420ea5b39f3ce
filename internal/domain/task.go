package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaskStatus string

const (
	TaskStatusAvailable TaskStatus = "available"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCooldown  TaskStatus = "cooldown"
)

// Task is a unit of fulfillable work spawned from one order line.
type Task struct {
	ID                uuid.UUID
	SourceOrderID     uuid.UUID
	LineIndex         int
	OwnerID           string
	Platform          Platform
	Type              TaskType
	ServiceID         string
	TargetURL         string
	Quantity          int
	RemainingQuantity int
	Status            TaskStatus
	LastExecutedAt    *time.Time
	CooldownEndsAt    *time.Time
	// Rate is paid to the executor per unit. The platform margin is the
	// spread between the buyer's unit price and this rate.
	Rate       decimal.Decimal
	CreatedAt  time.Time
	ArchivedAt *time.Time
}

func (t *Task) Exhausted() bool {
	return t.RemainingQuantity <= 0
}

type TaskExecution struct {
	TaskID     uuid.UUID
	ActorID    string
	Credited   decimal.Decimal
	ExecutedAt time.Time
}

// TaskFilter narrows the candidate set for an actor's available task list.
type TaskFilter struct {
	ActorID  string
	Platform Platform
	Type     TaskType
	Limit    int
}

type ExecutionResult struct {
	Success        bool
	CreditedAmount decimal.Decimal
	Task           *Task
	OrderCompleted bool
}
