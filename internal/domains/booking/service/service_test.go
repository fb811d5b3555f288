package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"lodge/config"
	"lodge/infras/otel/mocks"
	"lodge/infras/postgres"
	bookingMocks "lodge/internal/domains/booking/mocks"
	"lodge/internal/domains/booking/model"
	"lodge/internal/domains/booking/model/dto"
	"lodge/internal/domains/booking/service"
	roomMocks "lodge/internal/domains/room/mocks"
	roomModel "lodge/internal/domains/room/model"
	queueMocks "lodge/internal/domains/sync/queue/mocks"
	cacheMocks "lodge/shared/cache/mocks"
	"lodge/shared/constant"
	"lodge/shared/failure"
	"lodge/shared/lock"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"
)

type bookingFixture struct {
	svc      service.Booking
	repo     *bookingMocks.MockBooking
	roomRepo *roomMocks.MockRoom
	enqueuer *queueMocks.MockEnqueuer
	cache    *cacheMocks.MockRedisCache
	dbMock   sqlmock.Sqlmock
}

func newBookingFixture(t *testing.T, ctrl *gomock.Controller) bookingFixture {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	conn := &postgres.Connection{Read: sqlxDB, Write: sqlxDB}

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockRoomRepo := roomMocks.NewMockRoom(ctrl)
	mockEnqueuer := queueMocks.NewMockEnqueuer(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Sync.PendingHoldMinutes = 15

	svc := service.New(mockRepo, mockRoomRepo, mockEnqueuer, conn, lock.NewKeyed(), cfg, mockCache, mockOtel)

	return bookingFixture{
		svc:      svc,
		repo:     mockRepo,
		roomRepo: mockRoomRepo,
		enqueuer: mockEnqueuer,
		cache:    mockCache,
		dbMock:   dbMock,
	}
}

func activeRoom(id, hotelID string) roomModel.Room {
	return roomModel.Room{
		ID:        id,
		HotelID:   hotelID,
		Number:    "101",
		RoomType:  "double",
		BasePrice: 120,
		Capacity:  2,
		Status:    roomModel.StatusAvailable,
		Active:    true,
	}
}

func pendingBooking(id, roomID string, holdExpiresAt time.Time) model.Booking {
	checkIn := timezone.Today().AddDate(0, 0, 7)

	return model.Booking{
		ID:            id,
		HotelID:       "hotel-1",
		RoomID:        roomID,
		GuestName:     "Guest",
		CheckIn:       checkIn,
		CheckOut:      checkIn.AddDate(0, 0, 2),
		Status:        model.StatusPending,
		TotalAmount:   240,
		HoldExpiresAt: sql.NullTime{Time: holdExpiresAt, Valid: true},
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  "test-user",
			ModifiedBy: "test-user",
		},
	}
}

func staffContext() context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyHotelID, "hotel-1")

	return context.WithValue(ctx, constant.ContextKeyUserID, "test-user")
}

func TestBookingService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newBookingFixture(t, ctrl)

	checkIn := timezone.Today().AddDate(0, 0, 7)
	req := dto.CreateBookingRequest{
		RoomID:      "room-1",
		GuestName:   "Guest",
		CheckIn:     checkIn.Format(constant.StayDateFormat),
		CheckOut:    checkIn.AddDate(0, 0, 2).Format(constant.StayDateFormat),
		TotalAmount: 240,
	}

	tests := []struct {
		name      string
		req       dto.CreateBookingRequest
		setupMock func()
		wantErr   error
		wantOK    bool
	}{
		{
			name: "successful hold",
			req:  req,
			setupMock: func() {
				f.roomRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(activeRoom("room-1", "hotel-1"), nil)

				f.dbMock.ExpectBegin()

				f.repo.EXPECT().
					ExpireHoldsTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any()).
					Return(nil)

				f.repo.EXPECT().
					FindConflictsTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, nil)

				f.repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				f.dbMock.ExpectCommit()

				f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
			wantOK: true,
		},
		{
			name: "room already taken",
			req:  req,
			setupMock: func() {
				f.roomRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(activeRoom("room-1", "hotel-1"), nil)

				f.dbMock.ExpectBegin()

				f.repo.EXPECT().
					ExpireHoldsTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any()).
					Return(nil)

				f.repo.EXPECT().
					FindConflictsTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any(), gomock.Any(), gomock.Any()).
					Return([]model.Booking{pendingBooking("other", "room-1", timezone.Now().Add(10*time.Minute))}, nil)

				f.dbMock.ExpectRollback()
			},
			wantErr: failure.ErrRoomUnavailable,
		},
		{
			name: "room belongs to another hotel",
			req:  req,
			setupMock: func() {
				f.roomRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(activeRoom("room-1", "hotel-2"), nil)
			},
			wantErr: nil,
		},
		{
			name: "check_out before check_in",
			req: dto.CreateBookingRequest{
				RoomID:    "room-1",
				GuestName: "Guest",
				CheckIn:   checkIn.AddDate(0, 0, 2).Format(constant.StayDateFormat),
				CheckOut:  checkIn.Format(constant.StayDateFormat),
			},
			setupMock: func() {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := f.svc.Create(staffContext(), tt.req)

			if tt.wantOK {
				assert.NoError(t, err)
				assert.Equal(t, model.StatusPending, res.Status)
				assert.Equal(t, "room-1", res.RoomID)

				return
			}

			assert.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBookingService_AdmitChannelBooking(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newBookingFixture(t, ctrl)

	checkIn := timezone.Today().AddDate(0, 0, 3)
	adm := service.ChannelAdmission{
		HotelID:     "hotel-1",
		RoomID:      "room-1",
		ChannelID:   "channel-1",
		ExternalRef: "OTA-1001",
		GuestName:   "Channel Guest",
		CheckIn:     checkIn,
		CheckOut:    checkIn.AddDate(0, 0, 2),
		TotalAmount: 300,
	}

	t.Run("admitted as confirmed with fan-out", func(t *testing.T) {
		f.dbMock.ExpectBegin()

		f.repo.EXPECT().
			ExpireHoldsTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any()).
			Return(nil)

		f.repo.EXPECT().
			FindConflictsTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)

		f.repo.EXPECT().
			InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		f.enqueuer.EXPECT().
			FanOutTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any(), gomock.Any(), false, "channel-1").
			Return(nil)

		f.dbMock.ExpectCommit()

		f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		booking, err := f.svc.AdmitChannelBooking(context.Background(), adm)

		assert.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, booking.Status)
		assert.Equal(t, "channel-1", booking.ChannelID.String)
		assert.Equal(t, "OTA-1001", booking.ExternalRef.String)
	})

	t.Run("interval already taken", func(t *testing.T) {
		f.dbMock.ExpectBegin()

		f.repo.EXPECT().
			ExpireHoldsTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any()).
			Return(nil)

		f.repo.EXPECT().
			FindConflictsTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]model.Booking{pendingBooking("other", "room-1", timezone.Now().Add(10*time.Minute))}, nil)

		f.dbMock.ExpectRollback()

		_, err := f.svc.AdmitChannelBooking(context.Background(), adm)

		assert.ErrorIs(t, err, failure.ErrRoomUnavailable)
	})

	t.Run("inverted interval", func(t *testing.T) {
		bad := adm
		bad.CheckOut = bad.CheckIn

		_, err := f.svc.AdmitChannelBooking(context.Background(), bad)

		assert.Error(t, err)
	})
}

func TestBookingService_Transition(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newBookingFixture(t, ctrl)

	tests := []struct {
		name      string
		target    string
		setupMock func()
		wantErr   error
		want      string
	}{
		{
			name:   "confirm promotes a live hold",
			target: model.StatusConfirmed,
			setupMock: func() {
				booking := pendingBooking("booking-1", "room-1", timezone.Now().Add(10*time.Minute))

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)

				f.dbMock.ExpectBegin()

				f.repo.EXPECT().
					FindConflictsTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any(), gomock.Any(), gomock.Any()).
					Return([]model.Booking{booking}, nil)

				f.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				f.enqueuer.EXPECT().
					FanOutTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any(), gomock.Any(), false, gomock.Any()).
					Return(nil)

				f.dbMock.ExpectCommit()

				f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
			want: model.StatusConfirmed,
		},
		{
			name:   "confirm loses to a competing booking",
			target: model.StatusConfirmed,
			setupMock: func() {
				booking := pendingBooking("booking-1", "room-1", timezone.Now().Add(10*time.Minute))
				rival := pendingBooking("booking-2", "room-1", timezone.Now().Add(10*time.Minute))

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)

				f.dbMock.ExpectBegin()

				f.repo.EXPECT().
					FindConflictsTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any(), gomock.Any(), gomock.Any()).
					Return([]model.Booking{rival}, nil)

				f.dbMock.ExpectRollback()
			},
			wantErr: failure.ErrRoomUnavailable,
		},
		{
			name:   "confirm rejects an expired hold",
			target: model.StatusConfirmed,
			setupMock: func() {
				booking := pendingBooking("booking-1", "room-1", timezone.Now().Add(-time.Minute))

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)
			},
			wantErr: failure.ErrRoomUnavailable,
		},
		{
			name:   "cancel of a confirmed booking reopens the dates",
			target: model.StatusCancelled,
			setupMock: func() {
				booking := pendingBooking("booking-1", "room-1", time.Time{})
				booking.Status = model.StatusConfirmed
				booking.HoldExpiresAt = sql.NullTime{}

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)

				f.dbMock.ExpectBegin()

				f.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				f.enqueuer.EXPECT().
					FanOutTx(gomock.Any(), gomock.Any(), "room-1", gomock.Any(), gomock.Any(), true, "").
					Return(nil)

				f.dbMock.ExpectCommit()

				f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
			want: model.StatusCancelled,
		},
		{
			name:   "cancel of a pending hold stays local",
			target: model.StatusCancelled,
			setupMock: func() {
				booking := pendingBooking("booking-1", "room-1", timezone.Now().Add(10*time.Minute))

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)

				f.dbMock.ExpectBegin()

				f.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				f.dbMock.ExpectCommit()

				f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
			want: model.StatusCancelled,
		},
		{
			name:   "checked_out cannot be confirmed",
			target: model.StatusConfirmed,
			setupMock: func() {
				booking := pendingBooking("booking-1", "room-1", time.Time{})
				booking.Status = model.StatusCheckedOut

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)
			},
			wantErr: failure.ErrInvalidTransition,
		},
		{
			name:   "unknown booking",
			target: model.StatusConfirmed,
			setupMock: func() {
				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Booking{}, nil)
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := f.svc.Transition(staffContext(), "booking-1", tt.target)

			if tt.want != "" {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, res.Status)

				return
			}

			assert.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBookingService_RecordPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newBookingFixture(t, ctrl)

	tests := []struct {
		name      string
		amount    float64
		setupMock func()
		wantErr   bool
		wantPaid  float64
	}{
		{
			name:   "partial payment",
			amount: 100,
			setupMock: func() {
				booking := pendingBooking("booking-1", "room-1", timezone.Now().Add(10*time.Minute))
				booking.Status = model.StatusConfirmed

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)

				f.repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
			wantPaid: 100,
		},
		{
			name:   "payment exceeding total is rejected",
			amount: 500,
			setupMock: func() {
				booking := pendingBooking("booking-1", "room-1", timezone.Now().Add(10*time.Minute))
				booking.Status = model.StatusConfirmed
				booking.PaidAmount = 100

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)
			},
			wantErr: true,
		},
		{
			name:   "cancelled booking takes no payment",
			amount: 50,
			setupMock: func() {
				booking := pendingBooking("booking-1", "room-1", time.Time{})
				booking.Status = model.StatusCancelled

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := f.svc.RecordPayment(staffContext(), "booking-1", dto.RecordPaymentRequest{Amount: tt.amount})

			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.wantPaid, res.PaidAmount)
		})
	}
}

func TestBookingService_ExpireStaleHolds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newBookingFixture(t, ctrl)

	t.Run("sweep reports the cancelled count", func(t *testing.T) {
		f.repo.EXPECT().
			ExpireAllHolds(gomock.Any(), gomock.Any()).
			Return(int64(3), nil)

		f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		expired, err := f.svc.ExpireStaleHolds(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, int64(3), expired)
	})

	t.Run("repository error surfaces", func(t *testing.T) {
		f.repo.EXPECT().
			ExpireAllHolds(gomock.Any(), gomock.Any()).
			Return(int64(0), errors.New("database error"))

		_, err := f.svc.ExpireStaleHolds(context.Background())

		assert.Error(t, err)
	})
}
