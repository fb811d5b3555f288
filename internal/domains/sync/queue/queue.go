package queue

//go:generate go run go.uber.org/mock/mockgen -source=./queue.go -destination=./mocks/queue_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"lodge/config"
	"lodge/infras/otel"
	bookingModel "lodge/internal/domains/booking/model"
	bookingRepo "lodge/internal/domains/booking/repository"
	mappingModel "lodge/internal/domains/mapping/model"
	mappingRepo "lodge/internal/domains/mapping/repository"
	roomModel "lodge/internal/domains/room/model"
	roomRepo "lodge/internal/domains/room/repository"
	"lodge/internal/domains/sync/model"
	"lodge/internal/domains/sync/repository"
	"lodge/shared"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Enqueuer turns availability changes into durable sync tasks. It never
// touches the network; delivery belongs to the dispatcher.
type Enqueuer interface {
	// FanOutTx enqueues one task per active mapping of the room, inside the
	// caller's transaction so the availability change and its outbound work
	// commit together. excludeChannelID skips the channel the change came
	// from; pass empty for local changes.
	FanOutTx(ctx context.Context, tx *sqlx.Tx, roomID string, from, to time.Time, available bool, excludeChannelID string) error

	// EnqueueCorrection pushes an unavailable interval to one specific
	// channel, used to close dates on a channel holding stale state.
	EnqueueCorrection(ctx context.Context, channelID, roomID string, from, to time.Time) error

	// EnqueueFullCalendar rebuilds the channel's view of every room it maps:
	// per mapping, an open push over the whole horizon followed by a close per
	// active booking. Returns the job id grouping the tasks and how many were
	// enqueued.
	EnqueueFullCalendar(ctx context.Context, hotelID, channelID string) (jobID string, count int, err error)
}

type enqueuerImpl struct {
	taskRepo    repository.Task
	mappingRepo mappingRepo.Mapping
	roomRepo    roomRepo.Room
	bookingRepo bookingRepo.Booking
	cfg         *config.Config
	otel        otel.Otel
}

func NewEnqueuer(
	taskRepo repository.Task,
	mappingRepo mappingRepo.Mapping,
	roomRepo roomRepo.Room,
	bookingRepo bookingRepo.Booking,
	cfg *config.Config,
	otel otel.Otel,
) Enqueuer {
	return &enqueuerImpl{
		taskRepo:    taskRepo,
		mappingRepo: mappingRepo,
		roomRepo:    roomRepo,
		bookingRepo: bookingRepo,
		cfg:         cfg,
		otel:        otel,
	}
}

func (e *enqueuerImpl) FanOutTx(ctx context.Context, tx *sqlx.Tx, roomID string, from, to time.Time, available bool, excludeChannelID string) (err error) {
	ctx, scope := e.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".sync.FanOutTx")
	defer scope.End()
	defer scope.TraceIfError(err)

	room, mappings, err := e.roomAndMappings(ctx, roomID)
	if err != nil {
		return err
	}

	kind := model.TaskKindARIUpdate
	if available {
		kind = model.TaskKindARIRetract
	}

	for _, mapping := range mappings {
		if mapping.ChannelID == excludeChannelID {
			continue
		}

		task, err := buildTask(room, mapping, kind, "", from, to, available)
		if err != nil {
			return err
		}

		if err := e.taskRepo.EnqueueTx(ctx, tx, task); err != nil {
			log.Error().Err(err).Str("roomId", roomID).Str("channelId", mapping.ChannelID).Msg("failed to enqueue sync task")

			return fmt.Errorf("failed to enqueue sync task: %w", err)
		}
	}

	return nil
}

func (e *enqueuerImpl) EnqueueCorrection(ctx context.Context, channelID, roomID string, from, to time.Time) (err error) {
	ctx, scope := e.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".sync.EnqueueCorrection")
	defer scope.End()
	defer scope.TraceIfError(err)

	room, mappings, err := e.roomAndMappings(ctx, roomID)
	if err != nil {
		return err
	}

	for _, mapping := range mappings {
		if mapping.ChannelID != channelID {
			continue
		}

		task, err := buildTask(room, mapping, model.TaskKindARIUpdate, "", from, to, false)
		if err != nil {
			return err
		}

		if err := e.taskRepo.Enqueue(ctx, task); err != nil {
			log.Error().Err(err).Str("roomId", roomID).Str("channelId", channelID).Msg("failed to enqueue corrective sync task")

			return fmt.Errorf("failed to enqueue corrective sync task: %w", err)
		}

		return nil
	}

	log.Warn().Str("roomId", roomID).Str("channelId", channelID).Msg("no active mapping for corrective push")

	return nil
}

func (e *enqueuerImpl) EnqueueFullCalendar(ctx context.Context, hotelID, channelID string) (jobID string, count int, err error) {
	ctx, scope := e.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".sync.EnqueueFullCalendar")
	defer scope.End()
	defer scope.TraceIfError(err)

	mappings, err := e.mappingRepo.GetActiveForChannel(ctx, channelID)
	if err != nil {
		log.Error().Err(err).Str("channelId", channelID).Msg("failed to get mappings for calendar sync")

		return "", 0, fmt.Errorf("failed to get mappings for calendar sync: %w", err)
	}

	today := timezone.Today()
	horizon := today.AddDate(0, 0, e.cfg.Sync.CalendarHorizonDays)
	jobID = uuid.NewString()

	for _, mapping := range mappings {
		if mapping.HotelID != hotelID {
			continue
		}

		room, err := e.roomRepo.Get(ctx, shared.FilterByID(mapping.RoomID, roomModel.FieldID, roomModel.TableName))
		if err != nil {
			log.Error().Err(err).Str("roomId", mapping.RoomID).Msg("failed to get room for calendar sync")

			return "", 0, fmt.Errorf("failed to get room for calendar sync: %w", err)
		}

		if room.ID == constant.Empty || !room.Active {
			continue
		}

		bookings, err := e.activeBookings(ctx, mapping.RoomID, today, horizon)
		if err != nil {
			return "", 0, err
		}

		task, err := buildTask(room, mapping, model.TaskKindARIRetract, jobID, today, horizon, true)
		if err != nil {
			return "", 0, err
		}

		if err := e.taskRepo.Enqueue(ctx, task); err != nil {
			return "", 0, fmt.Errorf("failed to enqueue calendar open: %w", err)
		}

		count++

		for _, booking := range bookings {
			task, err := buildTask(room, mapping, model.TaskKindARIUpdate, jobID, booking.CheckIn, booking.CheckOut, false)
			if err != nil {
				return "", 0, err
			}

			if err := e.taskRepo.Enqueue(ctx, task); err != nil {
				return "", 0, fmt.Errorf("failed to enqueue calendar close: %w", err)
			}

			count++
		}
	}

	if count == 0 {
		return "", 0, failure.NotFound("no active mappings for channel") // nolint:wrapcheck
	}

	return jobID, count, nil
}

func (e *enqueuerImpl) roomAndMappings(ctx context.Context, roomID string) (roomModel.Room, []mappingModel.Mapping, error) {
	room, err := e.roomRepo.Get(ctx, shared.FilterByID(roomID, roomModel.FieldID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("roomId", roomID).Msg("failed to get room for sync fan-out")

		return room, nil, fmt.Errorf("failed to get room for sync fan-out: %w", err)
	}

	mappings, err := e.mappingRepo.GetActiveForRoom(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("roomId", roomID).Msg("failed to get mappings for sync fan-out")

		return room, nil, fmt.Errorf("failed to get mappings for sync fan-out: %w", err)
	}

	return room, mappings, nil
}

func (e *enqueuerImpl) activeBookings(ctx context.Context, roomID string, from, to time.Time) ([]bookingModel.Booking, error) {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: bookingModel.FieldRoomID, Operator: gDto.FilterOperatorEq, Value: roomID, Table: bookingModel.TableName},
			gDto.Filter{Field: bookingModel.FieldStatus, Operator: gDto.FilterOperatorIn, Value: []any{bookingModel.StatusConfirmed, bookingModel.StatusCheckedIn}, Table: bookingModel.TableName},
			gDto.Filter{Field: bookingModel.FieldCheckIn, Operator: gDto.FilterOperatorLess, Value: to, Table: bookingModel.TableName},
			gDto.Filter{Field: bookingModel.FieldCheckOut, Operator: gDto.FilterOperatorGreater, Value: from, Table: bookingModel.TableName},
		},
	}

	params := gDto.QueryParams{SortBy: bookingModel.FieldCheckIn, SortDir: gDto.SortDirAsc}

	bookings, err := e.bookingRepo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Str("roomId", roomID).Msg("failed to get bookings for calendar sync")

		return nil, fmt.Errorf("failed to get bookings for calendar sync: %w", err)
	}

	return bookings, nil
}

func buildTask(room roomModel.Room, mapping mappingModel.Mapping, kind, jobID string, from, to time.Time, available bool) (model.SyncTask, error) {
	payload := model.TaskPayload{
		ExternalRoomID: mapping.ExternalRoomID,
		From:           from,
		To:             to,
		Available:      available,
		Price:          mappingModel.ComputeChannelPrice(room.BasePrice, mapping.AdjustmentType, mapping.AdjustmentValue),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return model.SyncTask{}, fmt.Errorf("failed to marshal sync payload: %w", err)
	}

	now := timezone.Now()

	return model.SyncTask{
		ID:            uuid.NewString(),
		JobID:         sql.NullString{String: jobID, Valid: jobID != constant.Empty},
		HotelID:       room.HotelID,
		RoomID:        room.ID,
		ChannelID:     mapping.ChannelID,
		Kind:          kind,
		Payload:       raw,
		Status:        model.TaskStatusPending,
		Attempts:      0,
		NextAttemptAt: now,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  "system:enqueuer",
			ModifiedBy: "system:enqueuer",
		},
	}, nil
}
