package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"fmt"
	"lodge/config"
	"lodge/infras/otel"
	"lodge/infras/postgres"
	"lodge/internal/domains/booking/model"
	"lodge/internal/domains/booking/model/dto"
	"lodge/internal/domains/booking/repository"
	roomModel "lodge/internal/domains/room/model"
	roomRepo "lodge/internal/domains/room/repository"
	"lodge/internal/domains/sync/queue"
	"lodge/shared"
	"lodge/shared/cache"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
	"lodge/shared/lock"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"
)

// ChannelAdmission carries an externally originated reservation into the
// admission path. CheckOut is exclusive.
type ChannelAdmission struct {
	HotelID     string
	RoomID      string
	ChannelID   string
	ExternalRef string
	GuestName   string
	GuestEmail  string
	CheckIn     time.Time
	CheckOut    time.Time
	TotalAmount float64
}

type Booking interface {
	// Create places a pending hold on the room. The hold blocks concurrent
	// admission until it is confirmed, cancelled, or its window lapses.
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)

	// AdmitChannelBooking admits an externally sold reservation directly as
	// confirmed and fans the date closure out to every other channel. Returns
	// ErrRoomUnavailable when the interval is already taken.
	AdmitChannelBooking(ctx context.Context, adm ChannelAdmission) (model.Booking, error)

	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)

	// Transition moves the booking along the state machine. Confirming
	// re-validates the interval under the room guard; cancelling a confirmed
	// booking reopens the dates on every mapped channel.
	Transition(ctx context.Context, id, target string) (dto.BookingResponse, error)

	RecordPayment(ctx context.Context, id string, req dto.RecordPaymentRequest) (dto.BookingResponse, error)

	// ExpireStaleHolds is the periodic sweep for pending holds whose window
	// lapsed. Returns how many were cancelled.
	ExpireStaleHolds(ctx context.Context) (int64, error)
}

type serviceImpl struct {
	repo     repository.Booking
	roomRepo roomRepo.Room
	enqueuer queue.Enqueuer
	db       *postgres.Connection
	locks    *lock.Keyed
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
}

func New(
	repo repository.Booking,
	roomRepo roomRepo.Room,
	enqueuer queue.Enqueuer,
	db *postgres.Connection,
	locks *lock.Keyed,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:     repo,
		roomRepo: roomRepo,
		enqueuer: enqueuer,
		db:       db,
		locks:    locks,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	hotelID, _ := ctx.Value(constant.ContextKeyHotelID).(string)
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	checkIn, checkOut, err := req.Interval()
	if err != nil {
		return res, failure.BadRequest(err) // nolint:wrapcheck
	}

	if err = s.checkRoom(ctx, req.RoomID, hotelID); err != nil {
		return res, err
	}

	now := timezone.Now()
	holdExpiresAt := now.Add(time.Duration(s.cfg.Sync.PendingHoldMinutes) * time.Minute)
	booking := req.ToModel(hotelID, user, checkIn, checkOut, holdExpiresAt)

	s.locks.Lock(req.RoomID)
	defer s.locks.Unlock(req.RoomID)

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.ExpireHoldsTx(ctx, tx, req.RoomID, now); err != nil {
			return err
		}

		conflicts, err := s.repo.FindConflictsTx(ctx, tx, req.RoomID, checkIn, checkOut, now)
		if err != nil {
			return err
		}

		if len(conflicts) > 0 {
			return failure.ErrRoomUnavailable // nolint:wrapcheck
		}

		return s.repo.InsertTx(ctx, tx, booking)
	})
	if err != nil {
		return res, err
	}

	s.invalidateBooking(ctx, booking.ID)

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) AdmitChannelBooking(ctx context.Context, adm ChannelAdmission) (booking model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.AdmitChannelBooking")
	defer scope.End()
	defer scope.TraceIfError(err)

	if !adm.CheckIn.Before(adm.CheckOut) {
		return booking, failure.BadRequestFromString("check_in must be before check_out") // nolint:wrapcheck
	}

	now := timezone.Now()

	booking = model.Booking{
		ID:          uuid.NewString(),
		HotelID:     adm.HotelID,
		RoomID:      adm.RoomID,
		ChannelID:   sql.NullString{String: adm.ChannelID, Valid: true},
		GuestName:   adm.GuestName,
		GuestEmail:  adm.GuestEmail,
		CheckIn:     adm.CheckIn,
		CheckOut:    adm.CheckOut,
		Status:      model.StatusConfirmed,
		TotalAmount: adm.TotalAmount,
		ExternalRef: sql.NullString{String: adm.ExternalRef, Valid: true},
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  "system:ingest",
			ModifiedBy: "system:ingest",
		},
	}

	s.locks.Lock(adm.RoomID)
	defer s.locks.Unlock(adm.RoomID)

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.ExpireHoldsTx(ctx, tx, adm.RoomID, now); err != nil {
			return err
		}

		conflicts, err := s.repo.FindConflictsTx(ctx, tx, adm.RoomID, adm.CheckIn, adm.CheckOut, now)
		if err != nil {
			return err
		}

		if len(conflicts) > 0 {
			return failure.ErrRoomUnavailable // nolint:wrapcheck
		}

		if err := s.repo.InsertTx(ctx, tx, booking); err != nil {
			return err
		}

		return s.enqueuer.FanOutTx(ctx, tx, adm.RoomID, adm.CheckIn, adm.CheckOut, false, adm.ChannelID)
	})
	if err != nil {
		return booking, err
	}

	s.invalidateBooking(ctx, booking.ID)

	return booking, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	booking, err := s.getModel(ctx, id)
	if err != nil {
		return res, err
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Transition(ctx context.Context, id, target string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Transition")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getModel(ctx, id)
	if err != nil {
		return res, err
	}

	if !model.CanTransition(booking.Status, target) {
		return res, failure.ErrInvalidTransition // nolint:wrapcheck
	}

	switch target {
	case model.StatusConfirmed:
		err = s.confirm(ctx, &booking)
	case model.StatusCheckedIn:
		err = s.checkIn(ctx, &booking)
	case model.StatusCheckedOut:
		err = s.checkOut(ctx, &booking)
	case model.StatusCancelled:
		err = s.cancel(ctx, &booking)
	default:
		return res, failure.ErrInvalidTransition // nolint:wrapcheck
	}

	if err != nil {
		return res, err
	}

	s.invalidateBooking(ctx, booking.ID)

	res.FromModel(booking)

	return res, nil
}

// confirm re-validates the interval under the room guard before promoting the
// hold. A hold that expired between creation and confirmation loses its claim
// and must compete again.
func (s *serviceImpl) confirm(ctx context.Context, booking *model.Booking) error {
	now := timezone.Now()

	if booking.HoldExpired(now) {
		return failure.ErrRoomUnavailable // nolint:wrapcheck
	}

	s.locks.Lock(booking.RoomID)
	defer s.locks.Unlock(booking.RoomID)

	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		conflicts, err := s.repo.FindConflictsTx(ctx, tx, booking.RoomID, booking.CheckIn, booking.CheckOut, now)
		if err != nil {
			return err
		}

		for _, conflict := range conflicts {
			if conflict.ID != booking.ID {
				return failure.ErrRoomUnavailable // nolint:wrapcheck
			}
		}

		if err := s.updateStatusTx(ctx, tx, booking, model.StatusConfirmed, now); err != nil {
			return err
		}

		return s.enqueuer.FanOutTx(ctx, tx, booking.RoomID, booking.CheckIn, booking.CheckOut, false, booking.ChannelID.String)
	})
}

func (s *serviceImpl) checkIn(ctx context.Context, booking *model.Booking) error {
	today := timezone.Today()

	if booking.CheckIn.After(today) {
		return failure.BadRequestFromString("cannot check in before the check-in date") // nolint:wrapcheck
	}

	now := timezone.Now()

	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.updateStatusTx(ctx, tx, booking, model.StatusCheckedIn, now)
	})
}

func (s *serviceImpl) checkOut(ctx context.Context, booking *model.Booking) error {
	if due := booking.DueBalance(); due > 0 {
		log.Warn().Str("bookingId", booking.ID).Float64("due", due).Msg("checking out with outstanding balance")
	}

	now := timezone.Now()

	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.updateStatusTx(ctx, tx, booking, model.StatusCheckedOut, now)
	})
}

// cancel reopens the dates on mapped channels when the booking was already
// visible to them. A cancelled pending hold never reached the channels, so
// there is nothing to retract.
func (s *serviceImpl) cancel(ctx context.Context, booking *model.Booking) error {
	wasVisible := booking.Status == model.StatusConfirmed
	now := timezone.Now()

	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.updateStatusTx(ctx, tx, booking, model.StatusCancelled, now); err != nil {
			return err
		}

		if !wasVisible {
			return nil
		}

		return s.enqueuer.FanOutTx(ctx, tx, booking.RoomID, booking.CheckIn, booking.CheckOut, true, constant.Empty)
	})
}

func (s *serviceImpl) updateStatusTx(ctx context.Context, tx *sqlx.Tx, booking *model.Booking, status string, now time.Time) error {
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	if user == constant.Empty {
		user = "system"
	}

	updatedFields := map[string]any{
		model.FieldStatus:        status,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: user,
	}

	if status == model.StatusConfirmed {
		updatedFields[model.FieldHoldExpiresAt] = nil
	}

	filter := shared.FilterByID(booking.ID, model.FieldID, model.TableName)

	if err := s.repo.UpdateTx(ctx, tx, updatedFields, filter); err != nil {
		log.Error().Err(err).Str("bookingId", booking.ID).Msg("failed to update booking status")

		return fmt.Errorf("failed to update booking status: %w", err)
	}

	booking.Status = status
	booking.ModifiedAt = now
	booking.ModifiedBy = user

	if status == model.StatusConfirmed {
		booking.HoldExpiresAt = sql.NullTime{}
	}

	return nil
}

func (s *serviceImpl) RecordPayment(ctx context.Context, id string, req dto.RecordPaymentRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.RecordPayment")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getModel(ctx, id)
	if err != nil {
		return res, err
	}

	if model.IsTerminal(booking.Status) && booking.Status != model.StatusCheckedOut {
		return res, failure.BadRequestFromString("cannot record payment on a cancelled booking") // nolint:wrapcheck
	}

	if booking.PaidAmount+req.Amount > booking.TotalAmount {
		return res, failure.BadRequestFromString("payment exceeds total amount") // nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	now := timezone.Now()

	updatedFields := map[string]any{
		model.FieldPaidAmount:    booking.PaidAmount + req.Amount,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: user,
	}

	if err = s.repo.Update(ctx, updatedFields, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Str("bookingId", id).Msg("failed to record payment")

		return res, fmt.Errorf("failed to record payment: %w", err)
	}

	booking.PaidAmount += req.Amount
	booking.ModifiedAt = now
	booking.ModifiedBy = user

	s.invalidateBooking(ctx, id)

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) ExpireStaleHolds(ctx context.Context) (expired int64, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.ExpireStaleHolds")
	defer scope.End()
	defer scope.TraceIfError(err)

	expired, err = s.repo.ExpireAllHolds(ctx, timezone.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to expire stale holds")

		return 0, fmt.Errorf("failed to expire stale holds: %w", err)
	}

	if expired > 0 {
		log.Info().Int64("expired", expired).Msg("expired stale booking holds")

		go func() {
			c := context.WithoutCancel(ctx)

			shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
			shared.InvalidateCaches(c, s.cache, cacheCountBooking)
		}()
	}

	return expired, nil
}

func (s *serviceImpl) getModel(ctx context.Context, id string) (model.Booking, error) {
	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	return booking, nil
}

func (s *serviceImpl) checkRoom(ctx context.Context, roomID, hotelID string) error {
	room, err := s.roomRepo.Get(ctx, shared.FilterByID(roomID, roomModel.FieldID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("roomId", roomID).Msg("failed to get room")

		return fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty || room.HotelID != hotelID {
		return failure.NotFound("room not found") // nolint:wrapcheck
	}

	if !room.Active {
		return failure.BadRequestFromString("room is not active") // nolint:wrapcheck
	}

	return nil
}

func (s *serviceImpl) invalidateBooking(ctx context.Context, id string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete booking from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	}()
}
