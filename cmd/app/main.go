package main

import (
	"context"
	"lodge/config"
	"lodge/di"
	"lodge/shared/logger"
	"time"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	app := di.InitializeApp()

	ctx := context.Background()

	go app.Dispatcher.Run(ctx)
	go app.Consumer.Run(ctx)
	go sweepStaleHolds(ctx, app)

	app.HTTP.Serve()
}

// sweepStaleHolds backstops the lazy hold expiry done on the booking path, so
// holds on rooms nobody asks about again still come back to inventory.
func sweepStaleHolds(ctx context.Context, app *di.App) {
	ticker := time.NewTicker(time.Duration(app.Config.Sync.SweepIntervalMin) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := app.Booking.ExpireStaleHolds(ctx)
			if err != nil {
				log.Error().Err(err).Msg("failed to expire stale holds")

				continue
			}

			if expired > 0 {
				log.Info().Int64("expired", expired).Msg("expired stale booking holds")
			}
		}
	}
}
