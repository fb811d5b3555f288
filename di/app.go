package di

import (
	"lodge/config"
	bookingService "lodge/internal/domains/booking/service"
	"lodge/internal/domains/sync/consumer"
	syncService "lodge/internal/domains/sync/service"
	"lodge/transport/http"
)

// App bundles every long-running component the service binary starts.
type App struct {
	Config     *config.Config
	HTTP       *http.HTTP
	Dispatcher syncService.Dispatcher
	Consumer   *consumer.Consumer
	Booking    bookingService.Booking
}
