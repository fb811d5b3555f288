package repository

//go:generate go run go.uber.org/mock/mockgen -source=./alert.go -destination=../mocks/alert_mock.go -package=mocks

import (
	"context"
	"lodge/infras/otel"
	"lodge/infras/postgres"
	"lodge/internal/domains/sync/model"
	gDto "lodge/shared/dto"
	gRepo "lodge/shared/repository"
)

type Alert interface {
	Insert(ctx context.Context, model model.ChannelAlert) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.ChannelAlert, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.ChannelAlert, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
}

type alertRepositoryImpl struct {
	gRepo.Repository[model.ChannelAlert]
	db   *postgres.Connection
	otel otel.Otel
}

func NewAlert(db *postgres.Connection, otel otel.Otel) Alert {
	return &alertRepositoryImpl{
		Repository: gRepo.NewRepository[model.ChannelAlert](model.AlertEntityName, model.AlertTableName, model.FieldAlertID, db, otel),
		db:         db,
		otel:       otel,
	}
}
