package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"lodge/infras/otel"
	"lodge/infras/postgres"
	"lodge/internal/domains/mapping/model"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
	"lodge/shared/logger"
	gRepo "lodge/shared/repository"

	"github.com/lib/pq"
)

type Mapping interface {
	Insert(ctx context.Context, model model.Mapping) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Mapping, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Mapping, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	Delete(ctx context.Context, filter gDto.FilterGroup) error

	// GetActiveForRoom returns the room's mappings whose channel is still
	// active. These are the targets an availability change fans out to.
	GetActiveForRoom(ctx context.Context, roomID string) ([]model.Mapping, error)

	// GetActiveForChannel returns the channel's active mappings, provided the
	// channel itself is still active.
	GetActiveForChannel(ctx context.Context, channelID string) ([]model.Mapping, error)

	// Resolve finds the mapping for a channel's own room identifier.
	Resolve(ctx context.Context, channelID, externalRoomID string) (model.Mapping, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Mapping]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Mapping {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Mapping](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// Insert maps a unique constraint hit to the duplicate-mapping failure so the
// service layer does not parse driver errors.
func (repo *repositoryImpl) Insert(ctx context.Context, mapping model.Mapping) error {
	err := repo.Repository.Insert(ctx, mapping)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeUniqueViolation {
		return failure.ErrDuplicateMapping // nolint:wrapcheck
	}

	return err
}

const queryActiveForRoom = `
SELECT cm.id, cm.hotel_id, cm.room_id, cm.channel_id, cm.external_room_id,
       cm.adjustment_type, cm.adjustment_value, cm.is_active,
       cm.created_at, cm.modified_at, cm.created_by, cm.modified_by
FROM channel_mappings cm
JOIN channels c ON c.id = cm.channel_id
WHERE cm.room_id = $1
  AND cm.is_active = TRUE
  AND c.is_active = TRUE`

func (repo *repositoryImpl) GetActiveForRoom(ctx context.Context, roomID string) ([]model.Mapping, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".mapping.GetActiveForRoom")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryActiveForRoom)

	var mappings []model.Mapping

	err := repo.db.Read.SelectContext(ctx, &mappings, queryActiveForRoom, roomID)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to get active mappings for room: %w", err)
	}

	return mappings, nil
}

const queryActiveForChannel = `
SELECT cm.id, cm.hotel_id, cm.room_id, cm.channel_id, cm.external_room_id,
       cm.adjustment_type, cm.adjustment_value, cm.is_active,
       cm.created_at, cm.modified_at, cm.created_by, cm.modified_by
FROM channel_mappings cm
JOIN channels c ON c.id = cm.channel_id
WHERE cm.channel_id = $1
  AND cm.is_active = TRUE
  AND c.is_active = TRUE`

func (repo *repositoryImpl) GetActiveForChannel(ctx context.Context, channelID string) ([]model.Mapping, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".mapping.GetActiveForChannel")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryActiveForChannel)

	var mappings []model.Mapping

	err := repo.db.Read.SelectContext(ctx, &mappings, queryActiveForChannel, channelID)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to get active mappings for channel: %w", err)
	}

	return mappings, nil
}

func (repo *repositoryImpl) Resolve(ctx context.Context, channelID, externalRoomID string) (model.Mapping, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".mapping.Resolve")
	defer scope.End()

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldChannelID, Operator: gDto.FilterOperatorEq, Value: channelID, Table: model.TableName},
			gDto.Filter{Field: model.FieldExternalRoomID, Operator: gDto.FilterOperatorEq, Value: externalRoomID, Table: model.TableName},
			gDto.Filter{Field: model.FieldIsActive, Operator: gDto.FilterOperatorEq, Value: true, Table: model.TableName},
		},
	}

	return repo.Get(ctx, filter)
}
