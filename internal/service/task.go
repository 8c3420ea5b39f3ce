package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/boostly/internal/config"
	"github.com/set-night/boostly/internal/domain"
	"github.com/set-night/boostly/internal/eligibility"
)

type TaskService struct {
	store  Store
	policy eligibility.CooldownPolicy
	ledger *LedgerService
	now    func() time.Time
}

func NewTaskService(store Store, policy eligibility.CooldownPolicy, ledger *LedgerService) *TaskService {
	return &TaskService{store: store, policy: policy, ledger: ledger, now: time.Now}
}

// SetClock replaces the time source.
func (s *TaskService) SetClock(now func() time.Time) {
	s.now = now
}

// ListAvailable returns the tasks actorID may execute right now.
func (s *TaskService) ListAvailable(ctx context.Context, f domain.TaskFilter) ([]*domain.Task, error) {
	if f.ActorID == "" {
		return nil, domain.ErrForbidden
	}
	if f.Limit <= 0 || f.Limit > config.MaxAvailableTasks {
		f.Limit = config.MaxAvailableTasks
	}

	now := s.now()
	candidates, err := s.store.ListCandidateTasks(ctx, f, now)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	// The query already skips what the actor executed; the state machine
	// has the final word on everything else.
	out := make([]*domain.Task, 0, len(candidates))
	for _, t := range candidates {
		if eligibility.IsEligible(t, f.ActorID, now, false) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Execute runs one unit of a task for actorID. Eligibility is re-checked
// under the task's row lock, so two actors racing for the last unit cannot
// both win.
func (s *TaskService) Execute(ctx context.Context, taskID uuid.UUID, actorID string) (*domain.ExecutionResult, error) {
	if actorID == "" {
		return nil, domain.ErrForbidden
	}

	result := &domain.ExecutionResult{}
	err := s.store.WithinTx(ctx, func(r Repository) error {
		now := s.now()

		task, err := r.GetTaskForUpdate(ctx, taskID)
		if err != nil {
			return err
		}

		prior := false
		if !task.Type.Repeatable() {
			if prior, err = r.HasExecuted(ctx, task.ID, actorID); err != nil {
				return fmt.Errorf("check executions: %w", err)
			}
		}
		if err := eligibility.Check(task, actorID, now, prior); err != nil {
			return err
		}

		next := eligibility.Apply(*task, now, s.policy)
		if err := r.UpdateTask(ctx, &next); err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		credited := domain.Settle(next.Rate)
		if err := r.CreateExecution(ctx, domain.TaskExecution{
			TaskID:     next.ID,
			ActorID:    actorID,
			Credited:   credited,
			ExecutedAt: now,
		}); err != nil {
			return fmt.Errorf("record execution: %w", err)
		}

		if _, err := s.ledger.creditWith(ctx, r, actorID, credited, domain.LedgerRef{
			Description: fmt.Sprintf("Task reward: %s %s", next.Type, next.TargetURL),
			OrderID:     &next.SourceOrderID,
			TaskID:      &next.ID,
		}); err != nil {
			return fmt.Errorf("credit actor: %w", err)
		}

		if next.Exhausted() {
			completed, err := s.completeOrderIfDone(ctx, r, next.SourceOrderID, now)
			if err != nil {
				return err
			}
			result.OrderCompleted = completed
		}

		result.Success = true
		result.CreditedAmount = credited
		result.Task = &next
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotEligible) {
			slog.Debug("task not eligible", "task_id", taskID, "actor_id", actorID, "reason", err)
		}
		return nil, err
	}

	slog.Info("task executed",
		"task_id", taskID,
		"actor_id", actorID,
		"credited", result.CreditedAmount.StringFixed(2),
		"remaining", result.Task.RemainingQuantity,
	)
	return result, nil
}

// completeOrderIfDone holds the order lock while counting, so the last units
// of two tasks of one order cannot both miss the completion. Locks are
// always taken task first, then order.
func (s *TaskService) completeOrderIfDone(ctx context.Context, r Repository, orderID uuid.UUID, now time.Time) (bool, error) {
	o, err := r.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("lock order: %w", err)
	}
	if o.Status != domain.OrderStatusProcessing {
		return false, nil
	}
	open, err := r.CountOpenTasks(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("count open tasks: %w", err)
	}
	if open > 0 {
		return false, nil
	}
	err = r.TransitionOrder(ctx, orderID, domain.OrderStatusProcessing, domain.OrderStatusCompleted, "", now)
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("complete order: %w", err)
	}
	return true, nil
}
