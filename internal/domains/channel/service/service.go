package service

import (
	"context"
	"fmt"
	"lodge/config"
	"lodge/infras/otel"
	"lodge/internal/domains/channel/model"
	"lodge/internal/domains/channel/model/dto"
	"lodge/internal/domains/channel/repository"
	"lodge/shared"
	"lodge/shared/cache"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
	"lodge/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	cacheGetChannel    = "channel:get"
	cacheGetAllChannel = "channel:gets"
	cacheCountChannel  = "channel:count"
)

type Channel interface {
	Create(ctx context.Context, req dto.CreateChannelRequest) (dto.ChannelResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetChannelsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.ChannelResponse, error)
	Update(ctx context.Context, req dto.UpdateChannelRequest, id string) error
	Delete(ctx context.Context, id string) error
}

type serviceImpl struct {
	repo  repository.Channel
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.Channel, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Channel {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateChannelRequest) (res dto.ChannelResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".channel.Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	hotelID, _ := ctx.Value(constant.ContextKeyHotelID).(string)
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	channel := req.ToModel(hotelID, user)

	if err = s.repo.Insert(ctx, channel); err != nil {
		log.Error().Err(err).Msg("failed to create channel")

		return res, fmt.Errorf("failed to create channel: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllChannel)
		shared.InvalidateCaches(c, s.cache, cacheCountChannel)
	}()

	res.FromModel(channel)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetChannelsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".channel.GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllChannel, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count channels")

		return res, fmt.Errorf("failed to count channels: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get channels")

		return res, fmt.Errorf("failed to get channels: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save channels to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".channel.Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountChannel, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count channels")

		return res, fmt.Errorf("failed to count channels: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save channel count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.ChannelResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".channel.Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetChannel, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	channel, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get channel")

		return res, fmt.Errorf("failed to get channel: %w", err)
	}

	if channel.ID == constant.Empty {
		return res, failure.NotFound("channel not found") // nolint:wrapcheck
	}

	res.FromModel(channel)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save channel to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateChannelRequest, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".channel.Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	if req == (dto.UpdateChannelRequest{}) {
		return failure.BadRequestFromString("update request cannot be empty") // nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	exist, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if channel exists")

		return fmt.Errorf("failed to check if channel exists: %w", err)
	}

	if !exist {
		return failure.NotFound("channel not found") // nolint:wrapcheck
	}

	updatedFields := shared.TransformFields(req, user)
	if err = s.repo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to update channel")

		return fmt.Errorf("failed to update channel: %w", err)
	}

	s.invalidateChannel(ctx, id)

	return nil
}

// Delete deactivates the channel. Pending sync work for it is left in the
// queue; the dispatcher skips inactive channels at push time.
func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".channel.Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	exist, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if channel exists")

		return fmt.Errorf("failed to check if channel exists: %w", err)
	}

	if !exist {
		return failure.NotFound("channel not found") // nolint:wrapcheck
	}

	updatedFields := map[string]any{
		model.FieldIsActive:      false,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: user,
	}

	if err = s.repo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to deactivate channel")

		return fmt.Errorf("failed to deactivate channel: %w", err)
	}

	s.invalidateChannel(ctx, id)

	return nil
}

func (s *serviceImpl) invalidateChannel(ctx context.Context, id string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetChannel, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete channel from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllChannel)
		shared.InvalidateCaches(c, s.cache, cacheCountChannel)
	}()
}
