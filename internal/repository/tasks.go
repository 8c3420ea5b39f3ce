package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/set-night/boostly/internal/domain"
)

const taskColumns = `id, source_order_id, line_index, owner_id, platform, task_type, service_id, target_url,
quantity, remaining_quantity, status, last_executed_at, cooldown_ends_at, rate, created_at, archived_at`

const createTask = `
INSERT INTO tasks (` + taskColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`

func (q *Queries) CreateTask(ctx context.Context, t *domain.Task) error {
	_, err := q.db.Exec(ctx, createTask,
		t.ID,
		t.SourceOrderID,
		t.LineIndex,
		t.OwnerID,
		string(t.Platform),
		string(t.Type),
		t.ServiceID,
		t.TargetURL,
		t.Quantity,
		t.RemainingQuantity,
		string(t.Status),
		timePtrToPgTimestamptz(t.LastExecutedAt),
		timePtrToPgTimestamptz(t.CooldownEndsAt),
		t.Rate,
		timeToPgTimestamptz(t.CreatedAt),
		timePtrToPgTimestamptz(t.ArchivedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

const getTaskForUpdate = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 FOR UPDATE`

func (q *Queries) GetTaskForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	t, err := scanTask(q.db.QueryRow(ctx, getTaskForUpdate, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock task: %w", err)
	}
	return t, nil
}

const updateTask = `
UPDATE tasks
SET remaining_quantity = $2, status = $3, last_executed_at = $4, cooldown_ends_at = $5, archived_at = $6
WHERE id = $1
`

func (q *Queries) UpdateTask(ctx context.Context, t *domain.Task) error {
	tag, err := q.db.Exec(ctx, updateTask,
		t.ID,
		t.RemainingQuantity,
		string(t.Status),
		timePtrToPgTimestamptz(t.LastExecutedAt),
		timePtrToPgTimestamptz(t.CooldownEndsAt),
		timePtrToPgTimestamptz(t.ArchivedAt),
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

const archiveOrderTasks = `
UPDATE tasks
SET archived_at = $2, status = 'completed', cooldown_ends_at = NULL
WHERE source_order_id = $1 AND archived_at IS NULL
`

func (q *Queries) ArchiveOrderTasks(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	if _, err := q.db.Exec(ctx, archiveOrderTasks, orderID, timeToPgTimestamptz(at)); err != nil {
		return fmt.Errorf("archive order tasks: %w", err)
	}
	return nil
}

const countOpenTasks = `
SELECT count(*) FROM tasks
WHERE source_order_id = $1 AND archived_at IS NULL AND remaining_quantity > 0
`

func (q *Queries) CountOpenTasks(ctx context.Context, orderID uuid.UUID) (int, error) {
	var n int
	if err := q.db.QueryRow(ctx, countOpenTasks, orderID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count open tasks: %w", err)
	}
	return n, nil
}

const hasExecuted = `SELECT EXISTS (SELECT 1 FROM task_executions WHERE task_id = $1 AND actor_id = $2)`

func (q *Queries) HasExecuted(ctx context.Context, taskID uuid.UUID, actorID string) (bool, error) {
	var ok bool
	if err := q.db.QueryRow(ctx, hasExecuted, taskID, actorID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check execution: %w", err)
	}
	return ok, nil
}

const createExecution = `
INSERT INTO task_executions (task_id, actor_id, credited, executed_at)
VALUES ($1, $2, $3, $4)
`

func (q *Queries) CreateExecution(ctx context.Context, e domain.TaskExecution) error {
	if _, err := q.db.Exec(ctx, createExecution, e.TaskID, e.ActorID, e.Credited, timeToPgTimestamptz(e.ExecutedAt)); err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

const listCandidateTasks = `
SELECT ` + taskColumns + `
FROM tasks t
WHERE t.archived_at IS NULL
  AND t.remaining_quantity > 0
  AND t.owner_id <> $1
  AND ($2::text = '' OR t.platform = $2::text)
  AND ($3::text = '' OR t.task_type = $3::text)
  AND (t.cooldown_ends_at IS NULL OR t.cooldown_ends_at <= $4)
  AND (
    t.task_type NOT IN ('follow', 'subscribe')
    OR NOT EXISTS (SELECT 1 FROM task_executions e WHERE e.task_id = t.id AND e.actor_id = $1)
  )
ORDER BY t.created_at, t.line_index
LIMIT $5
`

func (q *Queries) ListCandidateTasks(ctx context.Context, f domain.TaskFilter, now time.Time) ([]*domain.Task, error) {
	rows, err := q.db.Query(ctx, listCandidateTasks,
		f.ActorID,
		string(f.Platform),
		string(f.Type),
		timeToPgTimestamptz(now),
		f.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t                              domain.Task
		platform, typ, status          string
		lastExecutedAt, cooldownEndsAt pgtype.Timestamptz
		createdAt, archivedAt          pgtype.Timestamptz
	)
	if err := row.Scan(
		&t.ID,
		&t.SourceOrderID,
		&t.LineIndex,
		&t.OwnerID,
		&platform,
		&typ,
		&t.ServiceID,
		&t.TargetURL,
		&t.Quantity,
		&t.RemainingQuantity,
		&status,
		&lastExecutedAt,
		&cooldownEndsAt,
		&t.Rate,
		&createdAt,
		&archivedAt,
	); err != nil {
		return nil, err
	}
	t.Platform = domain.Platform(platform)
	t.Type = domain.TaskType(typ)
	t.Status = domain.TaskStatus(status)
	t.LastExecutedAt = pgTimestamptzToTimePtr(lastExecutedAt)
	t.CooldownEndsAt = pgTimestamptzToTimePtr(cooldownEndsAt)
	t.CreatedAt = pgTimestamptzToTime(createdAt)
	t.ArchivedAt = pgTimestamptzToTimePtr(archivedAt)
	return &t, nil
}
