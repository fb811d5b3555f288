//go:build wireinject
// +build wireinject

package di

import (
	"lodge/config"
	"lodge/infras/channelgw"
	"lodge/infras/jwt"
	"lodge/infras/kafka"
	"lodge/infras/otel"
	"lodge/infras/postgres"
	"lodge/infras/redis"
	bookingHandler "lodge/internal/handlers/booking"
	channelHandler "lodge/internal/handlers/channel"
	mappingHandler "lodge/internal/handlers/mapping"
	roomHandler "lodge/internal/handlers/room"
	"lodge/shared/cache"
	"lodge/shared/lock"
	"lodge/transport/http"
	"lodge/transport/http/middleware"
	"lodge/transport/http/router"

	bookingRepository "lodge/internal/domains/booking/repository"
	bookingService "lodge/internal/domains/booking/service"
	channelRepository "lodge/internal/domains/channel/repository"
	channelService "lodge/internal/domains/channel/service"
	mappingRepository "lodge/internal/domains/mapping/repository"
	mappingService "lodge/internal/domains/mapping/service"
	roomRepository "lodge/internal/domains/room/repository"
	roomService "lodge/internal/domains/room/service"
	"lodge/internal/domains/sync/consumer"
	"lodge/internal/domains/sync/queue"
	syncRepository "lodge/internal/domains/sync/repository"
	syncService "lodge/internal/domains/sync/service"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	channelgw.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	lock.NewKeyed,
)

var roomDomain = wire.NewSet(
	roomRepository.New,
	roomService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var channelDomain = wire.NewSet(
	channelRepository.New,
	channelService.New,
)

var mappingDomain = wire.NewSet(
	mappingRepository.New,
	mappingService.New,
)

var syncDomain = wire.NewSet(
	syncRepository.NewTask,
	syncRepository.NewAlert,
	queue.NewEnqueuer,
	syncService.New,
	syncService.NewDispatcher,
	consumer.New,
)

var domains = wire.NewSet(
	roomDomain,
	bookingDomain,
	channelDomain,
	mappingDomain,
	syncDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	roomHandler.New,
	bookingHandler.New,
	channelHandler.New,
	mappingHandler.New,
	router.New,
)

func InitializeApp() *App {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
		wire.Struct(new(App), "*"),
	)

	return &App{}
}
