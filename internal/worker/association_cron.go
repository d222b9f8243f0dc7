package worker

// association_cron.go
// Background goroutine that enqueues a pairwise-association rebuild on a
// fixed interval (nightly by default). Complements the per-sale counter
// trigger so the cache converges even on quiet days.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartAssociationCron launches a goroutine that enqueues a rebuild every
// interval. It respects the context for graceful shutdown.
func StartAssociationCron(ctx context.Context, dispatcher *Dispatcher, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("association_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("association_cron: shutting down")
				return
			case <-ticker.C:
				if err := dispatcher.EnqueueAssociationRebuild(ctx); err != nil {
					log.Error().Err(err).Msg("association_cron: failed to enqueue rebuild")
				}
			}
		}
	}()
}
