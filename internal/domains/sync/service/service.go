package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"lodge/config"
	"lodge/infras/otel"
	bookingModel "lodge/internal/domains/booking/model"
	bookingRepo "lodge/internal/domains/booking/repository"
	bookingService "lodge/internal/domains/booking/service"
	mappingService "lodge/internal/domains/mapping/service"
	"lodge/internal/domains/sync/model"
	"lodge/internal/domains/sync/model/dto"
	"lodge/internal/domains/sync/queue"
	"lodge/internal/domains/sync/repository"
	"lodge/shared"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Sync is the channel synchronization surface: inbound event ingestion with
// conflict resolution, manual full-calendar pushes, and the alert feed.
type Sync interface {
	// IngestEvent applies one inbound channel event. Ingestion is idempotent
	// on the channel's external booking reference: replays of an applied
	// event are acknowledged without effect. A booked event losing the race
	// for its dates takes the overbooking path and returns ErrOverbooked.
	IngestEvent(ctx context.Context, channelID string, event dto.ChannelEvent) error

	// TriggerManualSync enqueues a full calendar rebuild for every room the
	// channel maps.
	TriggerManualSync(ctx context.Context, channelID string) (dto.SyncJobResponse, error)

	JobStatus(ctx context.Context, jobID string) (dto.JobStatusResponse, error)

	GetAlerts(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetAlertsResponse, error)
	ResolveAlert(ctx context.Context, id string) error
}

type serviceImpl struct {
	taskRepo    repository.Task
	alertRepo   repository.Alert
	bookingRepo bookingRepo.Booking
	bookingSvc  bookingService.Booking
	mappingSvc  mappingService.Mapping
	enqueuer    queue.Enqueuer
	cfg         *config.Config
	otel        otel.Otel
}

func New(
	taskRepo repository.Task,
	alertRepo repository.Alert,
	bookingRepo bookingRepo.Booking,
	bookingSvc bookingService.Booking,
	mappingSvc mappingService.Mapping,
	enqueuer queue.Enqueuer,
	cfg *config.Config,
	otel otel.Otel,
) Sync {
	return &serviceImpl{
		taskRepo:    taskRepo,
		alertRepo:   alertRepo,
		bookingRepo: bookingRepo,
		bookingSvc:  bookingSvc,
		mappingSvc:  mappingSvc,
		enqueuer:    enqueuer,
		cfg:         cfg,
		otel:        otel,
	}
}

func (s *serviceImpl) IngestEvent(ctx context.Context, channelID string, event dto.ChannelEvent) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".sync.IngestEvent")
	defer scope.End()
	defer scope.TraceIfError(err)

	scope.SetAttributes(map[string]any{
		"channel.id": channelID,
		"event.key":  event.EventKey(),
	})

	existing, err := s.bookingRepo.GetByExternalRef(ctx, channelID, event.ExternalRef)
	if err != nil {
		log.Error().Err(err).Str("channelId", channelID).Msg("failed to look up external booking reference")

		return fmt.Errorf("failed to look up external booking reference: %w", err)
	}

	switch event.EventType {
	case dto.EventTypeBooked:
		if existing.ID != constant.Empty {
			log.Info().Str("channelId", channelID).Str("eventKey", event.EventKey()).Msg("duplicate booked event ignored")

			return nil
		}

		return s.ingestBooked(ctx, channelID, event)
	case dto.EventTypeCancelled:
		return s.ingestCancelled(ctx, channelID, event, existing)
	default:
		return failure.BadRequestFromString("unknown event type") // nolint:wrapcheck
	}
}

func (s *serviceImpl) ingestBooked(ctx context.Context, channelID string, event dto.ChannelEvent) error {
	mapping, err := s.mappingSvc.Resolve(ctx, channelID, event.ExternalRoomID)
	if err != nil {
		return err // nolint:wrapcheck
	}

	from, to, err := event.Interval()
	if err != nil {
		return err // nolint:wrapcheck
	}

	adm := bookingService.ChannelAdmission{
		HotelID:     mapping.HotelID,
		RoomID:      mapping.RoomID,
		ChannelID:   channelID,
		ExternalRef: event.ExternalRef,
		GuestName:   event.GuestName,
		GuestEmail:  event.GuestEmail,
		CheckIn:     from,
		CheckOut:    to,
		TotalAmount: event.TotalAmount,
	}

	_, err = s.bookingSvc.AdmitChannelBooking(ctx, adm)
	if err == nil {
		return nil
	}

	if errors.Is(err, failure.ErrRoomUnavailable) {
		return s.resolveOverbooking(ctx, channelID, mapping.HotelID, mapping.RoomID, event)
	}

	// A concurrent delivery of the same event won the insert race between the
	// reference lookup and here. The event is applied, so acknowledge it.
	if errors.Is(err, failure.ErrDuplicateExternalRef) {
		log.Info().Str("channelId", channelID).Str("eventKey", event.EventKey()).Msg("concurrent duplicate booked event ignored")

		return nil
	}

	return err // nolint:wrapcheck
}

// resolveOverbooking handles a channel selling dates that were already taken.
// The local ledger wins: the channel's sale is refused, the operator is
// alerted, and a corrective close is pushed back to the stale channel.
func (s *serviceImpl) resolveOverbooking(ctx context.Context, channelID, hotelID, roomID string, event dto.ChannelEvent) error {
	log.Warn().
		Str("channelId", channelID).
		Str("roomId", roomID).
		Str("eventKey", event.EventKey()).
		Msg("overbooking detected, refusing channel sale")

	message := fmt.Sprintf("channel sold %s to %s for room dates already taken (ref %s)", event.CheckIn, event.CheckOut, event.ExternalRef)

	alert := newAlert(hotelID, channelID, roomID, model.AlertKindOverbooking, message)
	if err := s.alertRepo.Insert(ctx, alert); err != nil {
		log.Error().Err(err).Str("channelId", channelID).Msg("failed to raise overbooking alert")
	}

	from, to, err := event.Interval()
	if err == nil {
		if err := s.enqueuer.EnqueueCorrection(ctx, channelID, roomID, from, to); err != nil {
			log.Error().Err(err).Str("channelId", channelID).Msg("failed to enqueue corrective push")
		}
	}

	return failure.ErrOverbooked // nolint:wrapcheck
}

func (s *serviceImpl) ingestCancelled(ctx context.Context, channelID string, event dto.ChannelEvent, existing bookingModel.Booking) error {
	if existing.ID == constant.Empty {
		log.Warn().Str("channelId", channelID).Str("eventKey", event.EventKey()).Msg("cancelled event for unknown booking ignored")

		return nil
	}

	if existing.Status == bookingModel.StatusCancelled {
		return nil
	}

	if _, err := s.bookingSvc.Transition(ctx, existing.ID, bookingModel.StatusCancelled); err != nil {
		return err // nolint:wrapcheck
	}

	return nil
}

func (s *serviceImpl) TriggerManualSync(ctx context.Context, channelID string) (res dto.SyncJobResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".sync.TriggerManualSync")
	defer scope.End()
	defer scope.TraceIfError(err)

	hotelID, _ := ctx.Value(constant.ContextKeyHotelID).(string)

	jobID, count, err := s.enqueuer.EnqueueFullCalendar(ctx, hotelID, channelID)
	if err != nil {
		return res, err // nolint:wrapcheck
	}

	log.Info().Str("jobId", jobID).Str("channelId", channelID).Int("tasks", count).Msg("manual sync enqueued")

	res.JobID = jobID
	res.TaskCount = count

	return res, nil
}

func (s *serviceImpl) JobStatus(ctx context.Context, jobID string) (res dto.JobStatusResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".sync.JobStatus")
	defer scope.End()
	defer scope.TraceIfError(err)

	counts, err := s.taskRepo.JobCounts(ctx, jobID)
	if err != nil {
		return res, err // nolint:wrapcheck
	}

	if counts.Pending+counts.Inflight+counts.Delivered+counts.Failed == 0 {
		return res, failure.NotFound("sync job not found") // nolint:wrapcheck
	}

	res = dto.JobStatusResponse{
		JobID:     jobID,
		Pending:   counts.Pending,
		Inflight:  counts.Inflight,
		Delivered: counts.Delivered,
		Failed:    counts.Failed,
	}

	return res, nil
}

func (s *serviceImpl) GetAlerts(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetAlertsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".sync.GetAlerts")
	defer scope.End()
	defer scope.TraceIfError(err)

	total, err := s.alertRepo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count channel alerts")

		return res, fmt.Errorf("failed to count channel alerts: %w", err)
	}

	models, err := s.alertRepo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get channel alerts")

		return res, fmt.Errorf("failed to get channel alerts: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	return res, nil
}

func (s *serviceImpl) ResolveAlert(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".sync.ResolveAlert")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldAlertID, model.AlertTableName)

	exist, err := s.alertRepo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if alert exists")

		return fmt.Errorf("failed to check if alert exists: %w", err)
	}

	if !exist {
		return failure.NotFound("alert not found") // nolint:wrapcheck
	}

	updatedFields := map[string]any{
		model.FieldAlertResolved: true,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: user,
	}

	if err = s.alertRepo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to resolve alert")

		return fmt.Errorf("failed to resolve alert: %w", err)
	}

	return nil
}

func newAlert(hotelID, channelID, roomID, kind, message string) model.ChannelAlert {
	now := timezone.Now()

	return model.ChannelAlert{
		ID:        uuid.NewString(),
		HotelID:   hotelID,
		ChannelID: channelID,
		RoomID:    sql.NullString{String: roomID, Valid: roomID != constant.Empty},
		Kind:      kind,
		Message:   message,
		Resolved:  false,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  "system:sync",
			ModifiedBy: "system:sync",
		},
	}
}
