package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"lodge/config"
	"lodge/infras/otel/mocks"
	channelMocks "lodge/internal/domains/channel/mocks"
	mappingMocks "lodge/internal/domains/mapping/mocks"
	"lodge/internal/domains/mapping/model"
	"lodge/internal/domains/mapping/model/dto"
	"lodge/internal/domains/mapping/service"
	roomMocks "lodge/internal/domains/room/mocks"
	cacheMocks "lodge/shared/cache/mocks"
	"lodge/shared/constant"
	"lodge/shared/failure"
)

var errCacheMiss = errors.New("cache miss")

type mappingFixture struct {
	svc         service.Mapping
	repo        *mappingMocks.MockMapping
	roomRepo    *roomMocks.MockRoom
	channelRepo *channelMocks.MockChannel
	cache       *cacheMocks.MockRedisCache
}

func newMappingFixture(ctrl *gomock.Controller) mappingFixture {
	mockRepo := mappingMocks.NewMockMapping(ctrl)
	mockRoomRepo := roomMocks.NewMockRoom(ctrl)
	mockChannelRepo := channelMocks.NewMockChannel(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(mockRepo, mockRoomRepo, mockChannelRepo, cfg, mockCache, mocks.NewOtel())

	return mappingFixture{
		svc:         svc,
		repo:        mockRepo,
		roomRepo:    mockRoomRepo,
		channelRepo: mockChannelRepo,
		cache:       mockCache,
	}
}

func staffContext() context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyHotelID, "hotel-1")

	return context.WithValue(ctx, constant.ContextKeyUserID, "test-user")
}

func TestMappingService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newMappingFixture(ctrl)

	req := dto.CreateMappingRequest{
		RoomID:          "room-1",
		ChannelID:       "channel-1",
		ExternalRoomID:  "ota-room-42",
		AdjustmentType:  model.AdjustmentPercentage,
		AdjustmentValue: 10,
	}

	tests := []struct {
		name      string
		setupMock func()
		wantErr   bool
	}{
		{
			name: "success",
			setupMock: func() {
				f.roomRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.channelRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

				f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
		},
		{
			name: "room not found",
			setupMock: func() {
				f.roomRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
			},
			wantErr: true,
		},
		{
			name: "channel not found",
			setupMock: func() {
				f.roomRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
				f.channelRepo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := f.svc.Create(staffContext(), req)

			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "hotel-1", res.HotelID)
			assert.Equal(t, "ota-room-42", res.ExternalRoomID)
			assert.True(t, res.IsActive)
		})
	}
}

func TestMappingService_Resolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newMappingFixture(ctrl)

	t.Run("resolves through the repository on cache miss", func(t *testing.T) {
		f.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errCacheMiss)

		f.repo.EXPECT().
			Resolve(gomock.Any(), "channel-1", "ota-room-42").
			Return(model.Mapping{ID: "mapping-1", RoomID: "room-1", ChannelID: "channel-1", ExternalRoomID: "ota-room-42", IsActive: true}, nil)

		f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		mapping, err := f.svc.Resolve(context.Background(), "channel-1", "ota-room-42")

		assert.NoError(t, err)
		assert.Equal(t, "room-1", mapping.RoomID)
	})

	t.Run("unknown external room id", func(t *testing.T) {
		f.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errCacheMiss)

		f.repo.EXPECT().
			Resolve(gomock.Any(), "channel-1", "ota-room-unknown").
			Return(model.Mapping{}, nil)

		_, err := f.svc.Resolve(context.Background(), "channel-1", "ota-room-unknown")

		assert.ErrorIs(t, err, failure.ErrMappingNotFound)
	})
}

func TestMappingService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newMappingFixture(ctrl)

	t.Run("empty request is rejected", func(t *testing.T) {
		err := f.svc.Update(staffContext(), dto.UpdateMappingRequest{}, "mapping-1")

		assert.Error(t, err)
	})

	t.Run("unknown mapping", func(t *testing.T) {
		f.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Mapping{}, nil)

		err := f.svc.Update(staffContext(), dto.UpdateMappingRequest{ExternalRoomID: "ota-room-43"}, "mapping-missing")

		assert.Error(t, err)
	})
}
