package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"lodge/config"
	"lodge/infras/channelgw"
	channelgwMocks "lodge/infras/channelgw/mocks"
	"lodge/infras/otel/mocks"
	channelMocks "lodge/internal/domains/channel/mocks"
	channelModel "lodge/internal/domains/channel/model"
	syncMocks "lodge/internal/domains/sync/mocks"
	"lodge/internal/domains/sync/model"
	"lodge/internal/domains/sync/service"
	cacheMocks "lodge/shared/cache/mocks"
	"lodge/shared/timezone"
)

type dispatcherFixture struct {
	dispatcher  service.Dispatcher
	taskRepo    *syncMocks.MockTask
	alertRepo   *syncMocks.MockAlert
	channelRepo *channelMocks.MockChannel
	gateway     *channelgwMocks.MockClient
	cache       *cacheMocks.MockRedisCache
	cfg         *config.Config
}

func newDispatcherFixture(ctrl *gomock.Controller) dispatcherFixture {
	mockTask := syncMocks.NewMockTask(ctrl)
	mockAlert := syncMocks.NewMockAlert(ctrl)
	mockChannelRepo := channelMocks.NewMockChannel(ctrl)
	mockGateway := channelgwMocks.NewMockClient(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)

	cfg := &config.Config{}
	cfg.Sync.Workers = 1
	cfg.Sync.PollIntervalMS = 5
	cfg.Sync.ClaimBatchSize = 10
	cfg.Sync.BackoffBaseSeconds = 2
	cfg.Sync.MaxAttempts = 3
	cfg.Sync.ChannelRatePerMin = 5
	cfg.Sync.InflightLeaseSec = 120

	dispatcher := service.NewDispatcher(mockTask, mockAlert, mockChannelRepo, mockGateway, cfg, mockCache, mocks.NewOtel())

	return dispatcherFixture{
		dispatcher:  dispatcher,
		taskRepo:    mockTask,
		alertRepo:   mockAlert,
		channelRepo: mockChannelRepo,
		gateway:     mockGateway,
		cache:       mockCache,
		cfg:         cfg,
	}
}

func claimedTask(attempts int) model.SyncTask {
	return model.SyncTask{
		ID:        "task-1",
		HotelID:   "hotel-1",
		RoomID:    "room-1",
		ChannelID: "channel-1",
		Kind:      model.TaskKindARIUpdate,
		Payload:   types.JSONText(`{"external_room_id":"ota-room-42","available":false,"price":120}`),
		Status:    model.TaskStatusInflight,
		Attempts:  attempts,
	}
}

func activeChannel(health string) channelModel.Channel {
	return channelModel.Channel{
		ID:       "channel-1",
		HotelID:  "hotel-1",
		Name:     "Booking Desk",
		Provider: "bookingdesk",
		Endpoint: "https://gw.example.com/ari",
		IsActive: true,
		Health:   health,
	}
}

// runUntil starts the dispatcher and blocks until done fires, then shuts it
// down and waits for the workers to drain.
func runUntil(t *testing.T, f dispatcherFixture, done <-chan struct{}) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	go func() {
		f.dispatcher.Run(ctx)
		close(stopped)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not finish processing in time")
	}

	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop in time")
	}
}

func TestDispatcher_DeliverySucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newDispatcherFixture(ctrl)
	done := make(chan struct{})

	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return([]model.SyncTask{claimedTask(0)}, nil)
	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()

	f.channelRepo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(activeChannel(channelModel.HealthDegraded), nil)

	f.cache.EXPECT().
		Increment(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(1), nil)

	f.gateway.EXPECT().
		PushARI(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, target channelgw.Target, update channelgw.ARIUpdate) error {
			assert.Equal(t, "channel-1", target.ChannelID)
			assert.Equal(t, "ota-room-42", update.ExternalRoomID)
			assert.False(t, update.Available)

			return nil
		})

	f.taskRepo.EXPECT().
		MarkDelivered(gomock.Any(), "task-1").
		Return(nil)

	// The degraded channel recovers on a successful push.
	f.channelRepo.EXPECT().
		Update(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fields map[string]any, _ any) error {
			assert.Equal(t, channelModel.HealthHealthy, fields[channelModel.FieldHealth])
			close(done)

			return nil
		})

	runUntil(t, f, done)
}

func TestDispatcher_RateCapReleasesTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newDispatcherFixture(ctrl)
	done := make(chan struct{})

	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return([]model.SyncTask{claimedTask(0)}, nil)
	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()

	f.channelRepo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(activeChannel(channelModel.HealthHealthy), nil)

	f.cache.EXPECT().
		Increment(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(6), nil)

	f.taskRepo.EXPECT().
		Release(gomock.Any(), "task-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, next time.Time) error {
			assert.True(t, next.After(timezone.Now()))
			close(done)

			return nil
		})

	runUntil(t, f, done)
}

func TestDispatcher_RejectionFailsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newDispatcherFixture(ctrl)
	done := make(chan struct{})

	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return([]model.SyncTask{claimedTask(0)}, nil)
	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()

	f.channelRepo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(activeChannel(channelModel.HealthHealthy), nil)

	f.cache.EXPECT().
		Increment(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(1), nil)

	f.gateway.EXPECT().
		PushARI(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&channelgw.RejectedError{StatusCode: 422, Body: "unknown room"})

	f.taskRepo.EXPECT().
		MarkFailed(gomock.Any(), "task-1", gomock.Any()).
		Return(nil)

	f.alertRepo.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, alert model.ChannelAlert) error {
			assert.Equal(t, model.AlertKindPushRejected, alert.Kind)
			close(done)

			return nil
		})

	runUntil(t, f, done)
}

func TestDispatcher_TransientFailureBacksOff(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newDispatcherFixture(ctrl)
	done := make(chan struct{})

	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return([]model.SyncTask{claimedTask(1)}, nil)
	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()

	f.channelRepo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(activeChannel(channelModel.HealthHealthy), nil)

	f.cache.EXPECT().
		Increment(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(1), nil)

	f.gateway.EXPECT().
		PushARI(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(context.DeadlineExceeded)

	f.taskRepo.EXPECT().
		Reschedule(gomock.Any(), "task-1", 2, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ int, next time.Time, _ string) error {
			// Second attempt waits at least 2x the base.
			assert.True(t, next.After(timezone.Now().Add(3*time.Second)))
			close(done)

			return nil
		})

	runUntil(t, f, done)
}

func TestDispatcher_ExhaustedRetriesDegradeChannel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newDispatcherFixture(ctrl)
	done := make(chan struct{})

	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return([]model.SyncTask{claimedTask(2)}, nil)
	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()

	f.channelRepo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(activeChannel(channelModel.HealthHealthy), nil)

	f.cache.EXPECT().
		Increment(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(1), nil)

	f.gateway.EXPECT().
		PushARI(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(context.DeadlineExceeded)

	f.taskRepo.EXPECT().
		MarkFailed(gomock.Any(), "task-1", gomock.Any()).
		Return(nil)

	f.channelRepo.EXPECT().
		Update(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fields map[string]any, _ any) error {
			assert.Equal(t, channelModel.HealthDegraded, fields[channelModel.FieldHealth])

			return nil
		})

	f.alertRepo.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, alert model.ChannelAlert) error {
			assert.Equal(t, model.AlertKindDegraded, alert.Kind)
			close(done)

			return nil
		})

	runUntil(t, f, done)
}

func TestDispatcher_InactiveChannelDropsTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newDispatcherFixture(ctrl)
	done := make(chan struct{})

	channel := activeChannel(channelModel.HealthHealthy)
	channel.IsActive = false

	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return([]model.SyncTask{claimedTask(0)}, nil)
	f.taskRepo.EXPECT().
		Claim(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()

	f.channelRepo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(channel, nil)

	f.taskRepo.EXPECT().
		MarkFailed(gomock.Any(), "task-1", "channel inactive").
		DoAndReturn(func(_ context.Context, _, _ string) error {
			close(done)

			return nil
		})

	runUntil(t, f, done)
}
