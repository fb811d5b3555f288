package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"lodge/config"
	"lodge/infras/otel/mocks"
	bookingMocks "lodge/internal/domains/booking/mocks"
	bookingModel "lodge/internal/domains/booking/model"
	bookingDto "lodge/internal/domains/booking/model/dto"
	bookingService "lodge/internal/domains/booking/service"
	bookingServiceMocks "lodge/internal/domains/booking/service/mocks"
	mappingModel "lodge/internal/domains/mapping/model"
	mappingServiceMocks "lodge/internal/domains/mapping/service/mocks"
	syncMocks "lodge/internal/domains/sync/mocks"
	"lodge/internal/domains/sync/model"
	"lodge/internal/domains/sync/model/dto"
	queueMocks "lodge/internal/domains/sync/queue/mocks"
	"lodge/internal/domains/sync/service"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
)

type syncFixture struct {
	svc         service.Sync
	taskRepo    *syncMocks.MockTask
	alertRepo   *syncMocks.MockAlert
	bookingRepo *bookingMocks.MockBooking
	bookingSvc  *bookingServiceMocks.MockBooking
	mappingSvc  *mappingServiceMocks.MockMapping
	enqueuer    *queueMocks.MockEnqueuer
}

func newSyncFixture(ctrl *gomock.Controller) syncFixture {
	mockTask := syncMocks.NewMockTask(ctrl)
	mockAlert := syncMocks.NewMockAlert(ctrl)
	mockBookingRepo := bookingMocks.NewMockBooking(ctrl)
	mockBookingSvc := bookingServiceMocks.NewMockBooking(ctrl)
	mockMappingSvc := mappingServiceMocks.NewMockMapping(ctrl)
	mockEnqueuer := queueMocks.NewMockEnqueuer(ctrl)

	cfg := &config.Config{}

	svc := service.New(mockTask, mockAlert, mockBookingRepo, mockBookingSvc, mockMappingSvc, mockEnqueuer, cfg, mocks.NewOtel())

	return syncFixture{
		svc:         svc,
		taskRepo:    mockTask,
		alertRepo:   mockAlert,
		bookingRepo: mockBookingRepo,
		bookingSvc:  mockBookingSvc,
		mappingSvc:  mockMappingSvc,
		enqueuer:    mockEnqueuer,
	}
}

func bookedEvent() dto.ChannelEvent {
	return dto.ChannelEvent{
		EventType:      dto.EventTypeBooked,
		ExternalRef:    "OTA-1001",
		ExternalRoomID: "ota-room-42",
		GuestName:      "Channel Guest",
		CheckIn:        "2026-10-01",
		CheckOut:       "2026-10-03",
		TotalAmount:    300,
	}
}

func activeMapping() mappingModel.Mapping {
	return mappingModel.Mapping{
		ID:             "mapping-1",
		HotelID:        "hotel-1",
		RoomID:         "room-1",
		ChannelID:      "channel-1",
		ExternalRoomID: "ota-room-42",
		IsActive:       true,
	}
}

func TestSyncService_IngestEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newSyncFixture(ctrl)

	tests := []struct {
		name      string
		event     dto.ChannelEvent
		setupMock func()
		wantErr   error
		wantOK    bool
	}{
		{
			name:  "booked event admits a confirmed booking",
			event: bookedEvent(),
			setupMock: func() {
				f.bookingRepo.EXPECT().
					GetByExternalRef(gomock.Any(), "channel-1", "OTA-1001").
					Return(bookingModel.Booking{}, nil)

				f.mappingSvc.EXPECT().
					Resolve(gomock.Any(), "channel-1", "ota-room-42").
					Return(activeMapping(), nil)

				f.bookingSvc.EXPECT().
					AdmitChannelBooking(gomock.Any(), gomock.AssignableToTypeOf(bookingService.ChannelAdmission{})).
					DoAndReturn(func(_ context.Context, adm bookingService.ChannelAdmission) (bookingModel.Booking, error) {
						assert.Equal(t, "room-1", adm.RoomID)
						assert.Equal(t, "channel-1", adm.ChannelID)
						assert.Equal(t, "OTA-1001", adm.ExternalRef)

						return bookingModel.Booking{ID: "booking-1", Status: bookingModel.StatusConfirmed}, nil
					})
			},
			wantOK: true,
		},
		{
			name:  "replayed booked event is acknowledged without effect",
			event: bookedEvent(),
			setupMock: func() {
				f.bookingRepo.EXPECT().
					GetByExternalRef(gomock.Any(), "channel-1", "OTA-1001").
					Return(bookingModel.Booking{ID: "booking-1", Status: bookingModel.StatusConfirmed}, nil)
			},
			wantOK: true,
		},
		{
			name:  "booked event racing a concurrent delivery is acknowledged",
			event: bookedEvent(),
			setupMock: func() {
				f.bookingRepo.EXPECT().
					GetByExternalRef(gomock.Any(), "channel-1", "OTA-1001").
					Return(bookingModel.Booking{}, nil)

				f.mappingSvc.EXPECT().
					Resolve(gomock.Any(), "channel-1", "ota-room-42").
					Return(activeMapping(), nil)

				// Another delivery inserted the same reference after the
				// lookup, so the admission hits the unique index.
				f.bookingSvc.EXPECT().
					AdmitChannelBooking(gomock.Any(), gomock.Any()).
					Return(bookingModel.Booking{}, failure.ErrDuplicateExternalRef)
			},
			wantOK: true,
		},
		{
			name:  "losing booked event raises an alert and a corrective push",
			event: bookedEvent(),
			setupMock: func() {
				f.bookingRepo.EXPECT().
					GetByExternalRef(gomock.Any(), "channel-1", "OTA-1001").
					Return(bookingModel.Booking{}, nil)

				f.mappingSvc.EXPECT().
					Resolve(gomock.Any(), "channel-1", "ota-room-42").
					Return(activeMapping(), nil)

				f.bookingSvc.EXPECT().
					AdmitChannelBooking(gomock.Any(), gomock.Any()).
					Return(bookingModel.Booking{}, failure.ErrRoomUnavailable)

				f.alertRepo.EXPECT().
					Insert(gomock.Any(), gomock.AssignableToTypeOf(model.ChannelAlert{})).
					DoAndReturn(func(_ context.Context, alert model.ChannelAlert) error {
						assert.Equal(t, model.AlertKindOverbooking, alert.Kind)
						assert.Equal(t, "channel-1", alert.ChannelID)
						assert.False(t, alert.Resolved)

						return nil
					})

				f.enqueuer.EXPECT().
					EnqueueCorrection(gomock.Any(), "channel-1", "room-1", gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: failure.ErrOverbooked,
		},
		{
			name: "cancelled event for a known booking cancels it",
			event: dto.ChannelEvent{
				EventType:      dto.EventTypeCancelled,
				ExternalRef:    "OTA-1001",
				ExternalRoomID: "ota-room-42",
				CheckIn:        "2026-10-01",
				CheckOut:       "2026-10-03",
			},
			setupMock: func() {
				f.bookingRepo.EXPECT().
					GetByExternalRef(gomock.Any(), "channel-1", "OTA-1001").
					Return(bookingModel.Booking{ID: "booking-1", Status: bookingModel.StatusConfirmed}, nil)

				f.bookingSvc.EXPECT().
					Transition(gomock.Any(), "booking-1", bookingModel.StatusCancelled).
					Return(bookingDto.BookingResponse{ID: "booking-1", Status: bookingModel.StatusCancelled}, nil)
			},
			wantOK: true,
		},
		{
			name: "cancelled event for an unknown booking is ignored",
			event: dto.ChannelEvent{
				EventType:      dto.EventTypeCancelled,
				ExternalRef:    "OTA-9999",
				ExternalRoomID: "ota-room-42",
				CheckIn:        "2026-10-01",
				CheckOut:       "2026-10-03",
			},
			setupMock: func() {
				f.bookingRepo.EXPECT().
					GetByExternalRef(gomock.Any(), "channel-1", "OTA-9999").
					Return(bookingModel.Booking{}, nil)
			},
			wantOK: true,
		},
		{
			name: "replayed cancelled event is acknowledged without effect",
			event: dto.ChannelEvent{
				EventType:      dto.EventTypeCancelled,
				ExternalRef:    "OTA-1001",
				ExternalRoomID: "ota-room-42",
				CheckIn:        "2026-10-01",
				CheckOut:       "2026-10-03",
			},
			setupMock: func() {
				f.bookingRepo.EXPECT().
					GetByExternalRef(gomock.Any(), "channel-1", "OTA-1001").
					Return(bookingModel.Booking{ID: "booking-1", Status: bookingModel.StatusCancelled}, nil)
			},
			wantOK: true,
		},
		{
			name: "unknown event type is rejected",
			event: dto.ChannelEvent{
				EventType:      "modified",
				ExternalRef:    "OTA-1001",
				ExternalRoomID: "ota-room-42",
				CheckIn:        "2026-10-01",
				CheckOut:       "2026-10-03",
			},
			setupMock: func() {
				f.bookingRepo.EXPECT().
					GetByExternalRef(gomock.Any(), "channel-1", "OTA-1001").
					Return(bookingModel.Booking{}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			err := f.svc.IngestEvent(context.Background(), "channel-1", tt.event)

			if tt.wantOK {
				assert.NoError(t, err)

				return
			}

			assert.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSyncService_TriggerManualSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newSyncFixture(ctrl)

	ctx := context.WithValue(context.Background(), constant.ContextKeyHotelID, "hotel-1")

	t.Run("enqueues one task per mapped room", func(t *testing.T) {
		f.enqueuer.EXPECT().
			EnqueueFullCalendar(gomock.Any(), "hotel-1", "channel-1").
			Return("job-1", 4, nil)

		res, err := f.svc.TriggerManualSync(ctx, "channel-1")

		assert.NoError(t, err)
		assert.Equal(t, "job-1", res.JobID)
		assert.Equal(t, 4, res.TaskCount)
	})

	t.Run("enqueue failure surfaces", func(t *testing.T) {
		f.enqueuer.EXPECT().
			EnqueueFullCalendar(gomock.Any(), "hotel-1", "channel-1").
			Return("", 0, errors.New("database error"))

		_, err := f.svc.TriggerManualSync(ctx, "channel-1")

		assert.Error(t, err)
	})
}

func TestSyncService_JobStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newSyncFixture(ctrl)

	t.Run("reports per-status counts", func(t *testing.T) {
		f.taskRepo.EXPECT().
			JobCounts(gomock.Any(), "job-1").
			Return(model.JobCounts{Pending: 2, Inflight: 1, Delivered: 3, Failed: 1}, nil)

		res, err := f.svc.JobStatus(context.Background(), "job-1")

		assert.NoError(t, err)
		assert.Equal(t, "job-1", res.JobID)
		assert.Equal(t, 2, res.Pending)
		assert.Equal(t, 1, res.Inflight)
		assert.Equal(t, 3, res.Delivered)
		assert.Equal(t, 1, res.Failed)
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		f.taskRepo.EXPECT().
			JobCounts(gomock.Any(), "job-missing").
			Return(model.JobCounts{}, nil)

		_, err := f.svc.JobStatus(context.Background(), "job-missing")

		assert.Error(t, err)
	})
}

func TestSyncService_ResolveAlert(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newSyncFixture(ctrl)

	t.Run("marks the alert resolved", func(t *testing.T) {
		f.alertRepo.EXPECT().
			Exist(gomock.Any(), gomock.Any()).
			Return(true, nil)

		f.alertRepo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, true, fields[model.FieldAlertResolved])

				return nil
			})

		err := f.svc.ResolveAlert(context.Background(), "alert-1")

		assert.NoError(t, err)
	})

	t.Run("unknown alert is not found", func(t *testing.T) {
		f.alertRepo.EXPECT().
			Exist(gomock.Any(), gomock.Any()).
			Return(false, nil)

		err := f.svc.ResolveAlert(context.Background(), "alert-missing")

		assert.Error(t, err)
	})
}
