package repository

//go:generate go run go.uber.org/mock/mockgen -source=./task.go -destination=../mocks/task_mock.go -package=mocks

import (
	"context"
	"fmt"
	"lodge/infras/otel"
	"lodge/infras/postgres"
	"lodge/internal/domains/sync/model"
	"lodge/shared/constant"
	"lodge/shared/logger"
	"lodge/shared/timezone"
	"time"

	"github.com/jmoiron/sqlx"
)

type Task interface {
	Enqueue(ctx context.Context, task model.SyncTask) error
	EnqueueTx(ctx context.Context, tx *sqlx.Tx, task model.SyncTask) error

	// Claim moves up to limit ready tasks to inflight and returns them. A task
	// is ready when it is pending and due, or inflight with its lease lapsed
	// (the claimer crashed or lost its finalizing update), and no earlier
	// undelivered task exists for its (room, channel) pair. Safe to call from
	// concurrent dispatchers.
	Claim(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]model.SyncTask, error)

	MarkDelivered(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, lastError string) error

	// Reschedule returns a task to pending with a new due time after a
	// transient failure.
	Reschedule(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastError string) error

	// Release returns a rate-capped task to pending without counting an
	// attempt against it.
	Release(ctx context.Context, id string, nextAttemptAt time.Time) error

	JobCounts(ctx context.Context, jobID string) (model.JobCounts, error)
}

type taskRepositoryImpl struct {
	db   *postgres.Connection
	otel otel.Otel
}

func NewTask(db *postgres.Connection, otel otel.Otel) Task {
	return &taskRepositoryImpl{
		db:   db,
		otel: otel,
	}
}

// seq is assigned by the database sequence, so the insert lists columns
// explicitly instead of going through the generic repository.
const queryEnqueue = `
INSERT INTO sync_tasks (
	id, job_id, hotel_id, room_id, channel_id, kind, payload, status,
	attempts, next_attempt_at, created_at, modified_at, created_by, modified_by
) VALUES (
	:id, :job_id, :hotel_id, :room_id, :channel_id, :kind, :payload, :status,
	:attempts, :next_attempt_at, :created_at, :modified_at, :created_by, :modified_by
)`

func (repo *taskRepositoryImpl) Enqueue(ctx context.Context, task model.SyncTask) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".sync_task.Enqueue")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryEnqueue)

	_, err := repo.db.Write.NamedExecContext(ctx, queryEnqueue, task)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to enqueue sync task: %w", err)
	}

	return nil
}

func (repo *taskRepositoryImpl) EnqueueTx(ctx context.Context, tx *sqlx.Tx, task model.SyncTask) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".sync_task.EnqueueTx")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryEnqueue)

	_, err := tx.NamedExecContext(ctx, queryEnqueue, task)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to enqueue sync task: %w", err)
	}

	return nil
}

// The NOT EXISTS clause keeps per-pair ordering: a retrying head task blocks
// its successors instead of being overtaken. SKIP LOCKED lets concurrent
// claimers partition the ready set without waiting on each other. Inflight
// rows whose lease has lapsed are claimable again, so a crash between a claim
// and its finalizing update cannot strand the row or wedge its pair; the
// claim update renews the lease via modified_at.
const queryClaim = `
WITH ready AS (
	SELECT t.id
	FROM sync_tasks t
	WHERE (
	    (t.status = 'pending' AND t.next_attempt_at <= $1)
	    OR (t.status = 'inflight' AND t.modified_at <= $3)
	  )
	  AND NOT EXISTS (
		SELECT 1 FROM sync_tasks e
		WHERE e.room_id = t.room_id
		  AND e.channel_id = t.channel_id
		  AND e.seq < t.seq
		  AND e.status IN ('pending', 'inflight')
	  )
	ORDER BY t.seq
	LIMIT $2
	FOR UPDATE SKIP LOCKED
)
UPDATE sync_tasks s
SET status = 'inflight', modified_at = $1, modified_by = 'system:dispatcher'
FROM ready
WHERE s.id = ready.id
RETURNING s.id, s.seq, s.job_id, s.hotel_id, s.room_id, s.channel_id, s.kind,
          s.payload, s.status, s.attempts, s.next_attempt_at, s.last_error,
          s.created_at, s.modified_at, s.created_by, s.modified_by`

func (repo *taskRepositoryImpl) Claim(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]model.SyncTask, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".sync_task.Claim")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryClaim)

	var tasks []model.SyncTask

	err := repo.db.Write.SelectContext(ctx, &tasks, queryClaim, now, limit, now.Add(-lease))
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to claim sync tasks: %w", err)
	}

	return tasks, nil
}

const queryMarkDelivered = `
UPDATE sync_tasks
SET status = 'delivered', last_error = NULL, modified_at = $2, modified_by = 'system:dispatcher'
WHERE id = $1`

func (repo *taskRepositoryImpl) MarkDelivered(ctx context.Context, id string) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".sync_task.MarkDelivered")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryMarkDelivered)

	_, err := repo.db.Write.ExecContext(ctx, queryMarkDelivered, id, timezone.Now())
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to mark sync task delivered: %w", err)
	}

	return nil
}

const queryMarkFailed = `
UPDATE sync_tasks
SET status = 'failed', last_error = $2, modified_at = $3, modified_by = 'system:dispatcher'
WHERE id = $1`

func (repo *taskRepositoryImpl) MarkFailed(ctx context.Context, id, lastError string) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".sync_task.MarkFailed")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryMarkFailed)

	_, err := repo.db.Write.ExecContext(ctx, queryMarkFailed, id, lastError, timezone.Now())
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to mark sync task failed: %w", err)
	}

	return nil
}

const queryReschedule = `
UPDATE sync_tasks
SET status = 'pending', attempts = $2, next_attempt_at = $3, last_error = $4,
    modified_at = $5, modified_by = 'system:dispatcher'
WHERE id = $1`

func (repo *taskRepositoryImpl) Reschedule(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastError string) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".sync_task.Reschedule")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryReschedule)

	_, err := repo.db.Write.ExecContext(ctx, queryReschedule, id, attempts, nextAttemptAt, lastError, timezone.Now())
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to reschedule sync task: %w", err)
	}

	return nil
}

const queryRelease = `
UPDATE sync_tasks
SET status = 'pending', next_attempt_at = $2, modified_at = $3, modified_by = 'system:dispatcher'
WHERE id = $1`

func (repo *taskRepositoryImpl) Release(ctx context.Context, id string, nextAttemptAt time.Time) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".sync_task.Release")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryRelease)

	_, err := repo.db.Write.ExecContext(ctx, queryRelease, id, nextAttemptAt, timezone.Now())
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to release sync task: %w", err)
	}

	return nil
}

const queryJobCounts = `
SELECT COUNT(*) FILTER (WHERE status = 'pending')   AS pending,
       COUNT(*) FILTER (WHERE status = 'inflight')  AS inflight,
       COUNT(*) FILTER (WHERE status = 'delivered') AS delivered,
       COUNT(*) FILTER (WHERE status = 'failed')    AS failed
FROM sync_tasks
WHERE job_id = $1`

func (repo *taskRepositoryImpl) JobCounts(ctx context.Context, jobID string) (model.JobCounts, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".sync_task.JobCounts")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryJobCounts)

	var counts model.JobCounts

	err := repo.db.Read.GetContext(ctx, &counts, queryJobCounts, jobID)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return counts, fmt.Errorf("failed to get sync job counts: %w", err)
	}

	return counts, nil
}
