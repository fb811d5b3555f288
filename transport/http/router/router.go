package router

import (
	"lodge/internal/handlers/booking"
	"lodge/internal/handlers/channel"
	"lodge/internal/handlers/mapping"
	"lodge/internal/handlers/room"
	"lodge/shared/constant"
	"lodge/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Room    room.Handler
	Booking booking.Handler
	Channel channel.Handler
	Mapping mapping.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
	Auth           middleware.Auth
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		// Inbound channel webhooks are signed by the gateway, not by a
		// staff JWT, so they sit outside the authenticated group.
		r.DomainHandlers.Channel.WebhookRouter(routerGroup)

		routerGroup.Group(func(authed chi.Router) {
			authed.Use(r.Auth.Authenticate)

			r.DomainHandlers.Room.Router(authed)
			r.DomainHandlers.Booking.Router(authed)

			// Channel and mapping administration changes what the hotel
			// sells externally, so front desk staff are kept out.
			authed.Group(func(managed chi.Router) {
				managed.Use(r.Auth.RequireRole(constant.RoleAdmin, constant.RoleManager))

				r.DomainHandlers.Channel.Router(managed)
				r.DomainHandlers.Mapping.Router(managed)
			})
		})
	})
}

func New(domainHandlers DomainHandlers, auth middleware.Auth) Router {
	return Router{
		DomainHandlers: domainHandlers,
		Auth:           auth,
	}
}
