package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"lodge/infras/otel/mocks"
	"lodge/infras/postgres"
	"lodge/internal/domains/sync/model"
	"lodge/internal/domains/sync/repository"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"
)

// The claim query's ordering and lease semantics live in SQL, so these tests
// run against a real database. Set TEST_POSTGRES_DSN to enable them.
const ddlSyncTasks = `
CREATE TABLE IF NOT EXISTS sync_tasks (
	id              UUID NOT NULL DEFAULT gen_random_uuid(),
	seq             BIGSERIAL PRIMARY KEY,
	job_id          UUID,
	hotel_id        UUID NOT NULL,
	room_id         UUID NOT NULL,
	channel_id      UUID NOT NULL,
	kind            VARCHAR(16) NOT NULL,
	payload         JSONB NOT NULL,
	status          VARCHAR(16) NOT NULL DEFAULT 'pending',
	attempts        INT NOT NULL DEFAULT 0,
	next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_error      TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	modified_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_by      VARCHAR(64) NOT NULL,
	modified_by     VARCHAR(64) NOT NULL,
	UNIQUE (id)
)`

func newTaskRepository(t *testing.T) (repository.Task, *sqlx.DB) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	db.MustExec(ddlSyncTasks)
	db.MustExec("TRUNCATE sync_tasks")

	conn := &postgres.Connection{Read: db, Write: db}

	return repository.NewTask(conn, mocks.NewOtel()), db
}

func queuedTask(roomID, channelID string, due time.Time) model.SyncTask {
	now := timezone.Now()

	return model.SyncTask{
		ID:            uuid.NewString(),
		HotelID:       uuid.NewString(),
		RoomID:        roomID,
		ChannelID:     channelID,
		Kind:          model.TaskKindARIUpdate,
		Payload:       types.JSONText(`{"external_room_id":"ota-room-42","available":false}`),
		Status:        model.TaskStatusPending,
		NextAttemptAt: due,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  "test",
			ModifiedBy: "test",
		},
	}
}

func TestTaskRepository_ClaimKeepsPairOrder(t *testing.T) {
	repo, _ := newTaskRepository(t)
	ctx := context.Background()

	roomID := uuid.NewString()
	channelID := uuid.NewString()
	due := timezone.Now().Add(-time.Minute)

	head := queuedTask(roomID, channelID, due)
	successor := queuedTask(roomID, channelID, due)
	other := queuedTask(uuid.NewString(), channelID, due)

	assert.NoError(t, repo.Enqueue(ctx, head))
	assert.NoError(t, repo.Enqueue(ctx, successor))
	assert.NoError(t, repo.Enqueue(ctx, other))

	// The successor is due but its pair head is undelivered, so only the head
	// and the unrelated pair's task come out.
	claimed, err := repo.Claim(ctx, 10, timezone.Now(), time.Minute)

	assert.NoError(t, err)
	assert.Len(t, claimed, 2)

	claimedIDs := []string{claimed[0].ID, claimed[1].ID}
	assert.ElementsMatch(t, []string{head.ID, other.ID}, claimedIDs)

	assert.NoError(t, repo.MarkDelivered(ctx, head.ID))

	claimed, err = repo.Claim(ctx, 10, timezone.Now(), time.Minute)

	assert.NoError(t, err)
	assert.Len(t, claimed, 1)
	assert.Equal(t, successor.ID, claimed[0].ID)
}

func TestTaskRepository_ClaimWithholdsSuccessorOfRetryingHead(t *testing.T) {
	repo, _ := newTaskRepository(t)
	ctx := context.Background()

	roomID := uuid.NewString()
	channelID := uuid.NewString()
	due := timezone.Now().Add(-time.Minute)

	head := queuedTask(roomID, channelID, due)
	successor := queuedTask(roomID, channelID, due)

	assert.NoError(t, repo.Enqueue(ctx, head))
	assert.NoError(t, repo.Enqueue(ctx, successor))

	claimed, err := repo.Claim(ctx, 10, timezone.Now(), time.Minute)

	assert.NoError(t, err)
	assert.Len(t, claimed, 1)
	assert.Equal(t, head.ID, claimed[0].ID)

	assert.NoError(t, repo.Reschedule(ctx, head.ID, 1, timezone.Now().Add(time.Hour), "connection refused"))

	// The head is backing off, so the successor must not overtake it.
	claimed, err = repo.Claim(ctx, 10, timezone.Now(), time.Minute)

	assert.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestTaskRepository_ClaimReclaimsLapsedInflight(t *testing.T) {
	repo, db := newTaskRepository(t)
	ctx := context.Background()

	roomID := uuid.NewString()
	channelID := uuid.NewString()
	due := timezone.Now().Add(-time.Minute)

	head := queuedTask(roomID, channelID, due)
	successor := queuedTask(roomID, channelID, due)

	assert.NoError(t, repo.Enqueue(ctx, head))
	assert.NoError(t, repo.Enqueue(ctx, successor))

	claimed, err := repo.Claim(ctx, 10, timezone.Now(), time.Minute)

	assert.NoError(t, err)
	assert.Len(t, claimed, 1)
	assert.Equal(t, head.ID, claimed[0].ID)

	// While the lease holds, the inflight row is invisible and still blocks
	// its successor.
	claimed, err = repo.Claim(ctx, 10, timezone.Now(), time.Minute)

	assert.NoError(t, err)
	assert.Empty(t, claimed)

	// A claimer that died before its finalizing update leaves the row
	// inflight with a stale lease. Age it past the window.
	db.MustExec("UPDATE sync_tasks SET modified_at = $1 WHERE id = $2", timezone.Now().Add(-2*time.Minute), head.ID)

	claimed, err = repo.Claim(ctx, 10, timezone.Now(), time.Minute)

	assert.NoError(t, err)
	assert.Len(t, claimed, 1)
	assert.Equal(t, head.ID, claimed[0].ID)
	assert.Equal(t, model.TaskStatusInflight, claimed[0].Status)

	assert.NoError(t, repo.MarkDelivered(ctx, head.ID))

	claimed, err = repo.Claim(ctx, 10, timezone.Now(), time.Minute)

	assert.NoError(t, err)
	assert.Len(t, claimed, 1)
	assert.Equal(t, successor.ID, claimed[0].ID)
}
