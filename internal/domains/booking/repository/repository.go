package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"lodge/infras/otel"
	"lodge/infras/postgres"
	"lodge/internal/domains/booking/model"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
	"lodge/shared/logger"
	gRepo "lodge/shared/repository"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Booking interface {
	Insert(ctx context.Context, model model.Booking) error
	InsertTx(ctx context.Context, tx *sqlx.Tx, model model.Booking) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error

	// HasActiveOverlap reports whether any confirmed or checked-in booking for
	// the room overlaps [from, to). This is the public availability predicate.
	HasActiveOverlap(ctx context.Context, roomID string, from, to time.Time) (bool, error)

	// FindConflictsTx locks and returns every booking that blocks admission of
	// a new reservation on [from, to): active bookings plus pending holds that
	// have not yet expired at now. Must run inside the per-room critical
	// section; the row locks hold until the transaction ends.
	FindConflictsTx(ctx context.Context, tx *sqlx.Tx, roomID string, from, to, now time.Time) ([]model.Booking, error)

	// ExpireHoldsTx lazily cancels pending holds for the room whose window has
	// lapsed at now, freeing their intervals before the conflict check runs.
	ExpireHoldsTx(ctx context.Context, tx *sqlx.Tx, roomID string, now time.Time) error

	// ExpireAllHolds is the periodic sweep counterpart of ExpireHoldsTx.
	ExpireAllHolds(ctx context.Context, now time.Time) (int64, error)

	// GetByExternalRef fetches the booking ingested for a channel's booking
	// reference, if any. Backs idempotent event ingestion.
	GetByExternalRef(ctx context.Context, channelID, externalRef string) (model.Booking, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// InsertTx maps a unique constraint hit to the duplicate-reference failure so
// ingestion can treat a concurrently applied event as a no-op. Only channel
// bookings carry an external reference, so direct bookings never trip it.
func (repo *repositoryImpl) InsertTx(ctx context.Context, tx *sqlx.Tx, booking model.Booking) error {
	err := repo.Repository.InsertTx(ctx, tx, booking)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeUniqueViolation {
		return failure.ErrDuplicateExternalRef // nolint:wrapcheck
	}

	return err
}

const queryActiveOverlap = `
SELECT EXISTS(
	SELECT 1 FROM bookings
	WHERE room_id = $1
	  AND status IN ('confirmed', 'checked_in')
	  AND check_in < $3
	  AND check_out > $2
)`

func (repo *repositoryImpl) HasActiveOverlap(ctx context.Context, roomID string, from, to time.Time) (bool, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.HasActiveOverlap")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryActiveOverlap)

	var overlap bool

	err := repo.db.Read.GetContext(ctx, &overlap, queryActiveOverlap, roomID, from, to)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return false, fmt.Errorf("failed to check booking overlap: %w", err)
	}

	return overlap, nil
}

const queryConflicts = `
SELECT id, hotel_id, room_id, channel_id, guest_name, guest_email, guest_phone,
       check_in, check_out, status, total_amount, paid_amount, external_ref,
       hold_expires_at, created_at, modified_at, created_by, modified_by
FROM bookings
WHERE room_id = $1
  AND check_in < $3
  AND check_out > $2
  AND (
	status IN ('confirmed', 'checked_in')
	OR (status = 'pending' AND (hold_expires_at IS NULL OR hold_expires_at > $4))
  )
ORDER BY check_in
FOR UPDATE`

func (repo *repositoryImpl) FindConflictsTx(ctx context.Context, tx *sqlx.Tx, roomID string, from, to, now time.Time) ([]model.Booking, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.FindConflictsTx")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryConflicts)

	var conflicts []model.Booking

	err := tx.SelectContext(ctx, &conflicts, queryConflicts, roomID, from, to, now)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to find conflicting bookings: %w", err)
	}

	return conflicts, nil
}

const queryExpireHolds = `
UPDATE bookings
SET status = 'cancelled', modified_at = $2, modified_by = 'system:hold-expiry'
WHERE room_id = $1
  AND status = 'pending'
  AND hold_expires_at IS NOT NULL
  AND hold_expires_at <= $2`

func (repo *repositoryImpl) ExpireHoldsTx(ctx context.Context, tx *sqlx.Tx, roomID string, now time.Time) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ExpireHoldsTx")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryExpireHolds)

	_, err := tx.ExecContext(ctx, queryExpireHolds, roomID, now)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to expire pending holds: %w", err)
	}

	return nil
}

const querySweepHolds = `
UPDATE bookings
SET status = 'cancelled', modified_at = $1, modified_by = 'system:hold-sweep'
WHERE status = 'pending'
  AND hold_expires_at IS NOT NULL
  AND hold_expires_at <= $1`

func (repo *repositoryImpl) ExpireAllHolds(ctx context.Context, now time.Time) (int64, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ExpireAllHolds")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, querySweepHolds)

	result, err := repo.db.Write.ExecContext(ctx, querySweepHolds, now)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to sweep pending holds: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept holds: %w", err)
	}

	return affected, nil
}

func (repo *repositoryImpl) GetByExternalRef(ctx context.Context, channelID, externalRef string) (model.Booking, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.GetByExternalRef")
	defer scope.End()

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldChannelID, Operator: gDto.FilterOperatorEq, Value: channelID, Table: model.TableName},
			gDto.Filter{Field: model.FieldExternalRef, Operator: gDto.FilterOperatorEq, Value: externalRef, Table: model.TableName},
		},
	}

	return repo.Get(ctx, filter)
}
