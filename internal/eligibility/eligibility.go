// Package eligibility is the task state machine: who may execute a task
// and what state an execution leaves it in.
//
//	available --execute--> cooldown --(now >= cooldownEndsAt)--> available
//	available --execute, last unit--> completed (retired)
//
// Follow and subscribe tasks never enter cooldown. They stay available to
// actors who have not executed them yet until the last unit is taken.
package eligibility

import (
	"fmt"
	"time"

	"github.com/set-night/boostly/internal/domain"
)

var (
	ErrSelfExecution   = fmt.Errorf("%w: actor owns the task", domain.ErrNotEligible)
	ErrExhausted       = fmt.Errorf("%w: no remaining quantity", domain.ErrNotEligible)
	ErrCoolingDown     = fmt.Errorf("%w: task is cooling down", domain.ErrNotEligible)
	ErrAlreadyExecuted = fmt.Errorf("%w: actor already executed this task", domain.ErrNotEligible)
	ErrCompleted       = fmt.Errorf("%w: task is completed", domain.ErrNotEligible)
)

// CooldownPolicy yields the rest period after executing a task type.
type CooldownPolicy interface {
	Cooldown(t domain.TaskType) time.Duration
}

// Check returns nil when actorID may execute t at now, or an error wrapping
// domain.ErrNotEligible naming the reason. priorExecution reports whether
// the actor has executed this task before.
func Check(t *domain.Task, actorID string, now time.Time, priorExecution bool) error {
	if actorID == t.OwnerID {
		return ErrSelfExecution
	}
	if t.Exhausted() || t.ArchivedAt != nil {
		return ErrExhausted
	}
	if priorExecution && !t.Type.Repeatable() {
		return ErrAlreadyExecuted
	}

	switch t.Status {
	case domain.TaskStatusAvailable:
		return nil
	case domain.TaskStatusCooldown, domain.TaskStatusCompleted:
		if !t.Type.Repeatable() {
			return ErrCompleted
		}
		if t.CooldownEndsAt == nil || !now.Before(*t.CooldownEndsAt) {
			return nil
		}
		return ErrCoolingDown
	}
	return fmt.Errorf("%w: unknown status %q", domain.ErrNotEligible, t.Status)
}

func IsEligible(t *domain.Task, actorID string, now time.Time, priorExecution bool) bool {
	return Check(t, actorID, now, priorExecution) == nil
}

// Apply returns t after one unit was executed at now. Callers must have
// checked eligibility under the same lock.
func Apply(t domain.Task, now time.Time, policy CooldownPolicy) domain.Task {
	t.RemainingQuantity--
	executedAt := now
	t.LastExecutedAt = &executedAt
	t.CooldownEndsAt = nil

	switch {
	case t.RemainingQuantity <= 0:
		t.RemainingQuantity = 0
		t.Status = domain.TaskStatusCompleted
		t.ArchivedAt = &executedAt
	case t.Type.Repeatable() && policy.Cooldown(t.Type) > 0:
		ends := now.Add(policy.Cooldown(t.Type))
		t.Status = domain.TaskStatusCooldown
		t.CooldownEndsAt = &ends
	default:
		t.Status = domain.TaskStatusAvailable
	}
	return t
}

// Effective reports the status as observed at now: an expired cooldown
// reads as available.
func Effective(t *domain.Task, now time.Time) domain.TaskStatus {
	if t.Exhausted() {
		return domain.TaskStatusCompleted
	}
	if t.Status == domain.TaskStatusCooldown && t.CooldownEndsAt != nil && !now.Before(*t.CooldownEndsAt) {
		return domain.TaskStatusAvailable
	}
	return t.Status
}
