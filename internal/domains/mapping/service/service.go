package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"lodge/config"
	"lodge/infras/otel"
	channelModel "lodge/internal/domains/channel/model"
	channelRepo "lodge/internal/domains/channel/repository"
	"lodge/internal/domains/mapping/model"
	"lodge/internal/domains/mapping/model/dto"
	"lodge/internal/domains/mapping/repository"
	roomModel "lodge/internal/domains/room/model"
	roomRepo "lodge/internal/domains/room/repository"
	"lodge/shared"
	"lodge/shared/cache"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"

	"github.com/rs/zerolog/log"
)

const (
	cacheGetMapping     = "mapping:get"
	cacheGetAllMapping  = "mapping:gets"
	cacheCountMapping   = "mapping:count"
	cacheResolveMapping = "mapping:resolve"
)

type Mapping interface {
	Create(ctx context.Context, req dto.CreateMappingRequest) (dto.MappingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetMappingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.MappingResponse, error)
	Update(ctx context.Context, req dto.UpdateMappingRequest, id string) error
	Delete(ctx context.Context, id string) error

	// Resolve translates a channel's own room identifier into the mapping
	// that owns it. Inbound events depend on this lookup.
	Resolve(ctx context.Context, channelID, externalRoomID string) (model.Mapping, error)
}

type serviceImpl struct {
	repo        repository.Mapping
	roomRepo    roomRepo.Room
	channelRepo channelRepo.Channel
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func New(
	repo repository.Mapping,
	roomRepo roomRepo.Room,
	channelRepo channelRepo.Channel,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Mapping {
	return &serviceImpl{
		repo:        repo,
		roomRepo:    roomRepo,
		channelRepo: channelRepo,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateMappingRequest) (res dto.MappingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".mapping.Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	hotelID, _ := ctx.Value(constant.ContextKeyHotelID).(string)
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	roomExist, err := s.roomRepo.Exist(ctx, hotelScopedFilter(req.RoomID, hotelID, roomModel.FieldID, roomModel.FieldHotelID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to check if room exists")

		return res, fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !roomExist {
		return res, failure.NotFound("room not found") // nolint:wrapcheck
	}

	channelExist, err := s.channelRepo.Exist(ctx, hotelScopedFilter(req.ChannelID, hotelID, channelModel.FieldID, channelModel.FieldHotelID, channelModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to check if channel exists")

		return res, fmt.Errorf("failed to check if channel exists: %w", err)
	}

	if !channelExist {
		return res, failure.NotFound("channel not found") // nolint:wrapcheck
	}

	mapping := req.ToModel(hotelID, user)

	if err = s.repo.Insert(ctx, mapping); err != nil {
		log.Error().Err(err).Msg("failed to create mapping")

		return res, fmt.Errorf("failed to create mapping: %w", err)
	}

	s.invalidateMapping(ctx, mapping)

	res.FromModel(mapping)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetMappingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".mapping.GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllMapping, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count mappings")

		return res, fmt.Errorf("failed to count mappings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get mappings")

		return res, fmt.Errorf("failed to get mappings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save mappings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".mapping.Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountMapping, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count mappings")

		return res, fmt.Errorf("failed to count mappings: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save mapping count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.MappingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".mapping.Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetMapping, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	mapping, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get mapping")

		return res, fmt.Errorf("failed to get mapping: %w", err)
	}

	if mapping.ID == constant.Empty {
		return res, failure.NotFound("mapping not found") // nolint:wrapcheck
	}

	res.FromModel(mapping)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save mapping to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateMappingRequest, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".mapping.Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	if req == (dto.UpdateMappingRequest{}) {
		return failure.BadRequestFromString("update request cannot be empty") // nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	mapping, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get mapping")

		return fmt.Errorf("failed to get mapping: %w", err)
	}

	if mapping.ID == constant.Empty {
		return failure.NotFound("mapping not found") // nolint:wrapcheck
	}

	updatedFields := shared.TransformFields(req, user)
	if err = s.repo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to update mapping")

		return fmt.Errorf("failed to update mapping: %w", err)
	}

	s.invalidateMapping(ctx, mapping)

	return nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".mapping.Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	mapping, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get mapping")

		return fmt.Errorf("failed to get mapping: %w", err)
	}

	if mapping.ID == constant.Empty {
		return failure.NotFound("mapping not found") // nolint:wrapcheck
	}

	if err = s.repo.Delete(ctx, filter); err != nil {
		log.Error().Err(err).Msg("failed to delete mapping")

		return fmt.Errorf("failed to delete mapping: %w", err)
	}

	s.invalidateMapping(ctx, mapping)

	return nil
}

func (s *serviceImpl) Resolve(ctx context.Context, channelID, externalRoomID string) (res model.Mapping, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".mapping.Resolve")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheResolveMapping, channelID, externalRoomID)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Resolve(ctx, channelID, externalRoomID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve mapping")

		return res, fmt.Errorf("failed to resolve mapping: %w", err)
	}

	if res.ID == constant.Empty {
		return res, failure.ErrMappingNotFound // nolint:wrapcheck
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save resolved mapping to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) invalidateMapping(ctx context.Context, mapping model.Mapping) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetMapping, mapping.ID)); err != nil {
			log.Error().Err(err).Msg("failed to delete mapping from cache")
		}

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheResolveMapping, mapping.ChannelID, mapping.ExternalRoomID)); err != nil {
			log.Error().Err(err).Msg("failed to delete resolved mapping from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllMapping)
		shared.InvalidateCaches(c, s.cache, cacheCountMapping)
	}()
}

func hotelScopedFilter(id, hotelID, fieldID, fieldHotelID, table string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: fieldID, Operator: gDto.FilterOperatorEq, Value: id, Table: table},
			gDto.Filter{Field: fieldHotelID, Operator: gDto.FilterOperatorEq, Value: hotelID, Table: table},
		},
	}
}
