package worker

// trigger.go
// Sale-count based recompute trigger: every completed sale bumps a Redis
// counter; when it reaches the configured threshold the counter resets and a
// rebuild job is enqueued. Fire-and-forget — sale recording never blocks on
// or fails because of the trigger.

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const salesCounterKey = "associations:sales_since_rebuild"

type RecomputeTrigger struct {
	rdb        *redis.Client
	dispatcher *Dispatcher
	threshold  int
}

func NewRecomputeTrigger(rdb *redis.Client, dispatcher *Dispatcher, threshold int) *RecomputeTrigger {
	return &RecomputeTrigger{rdb: rdb, dispatcher: dispatcher, threshold: threshold}
}

// SaleCompleted records one more completed sale and enqueues a rebuild when
// the threshold is reached. INCR is atomic, so concurrent sales cannot lose
// counts; at worst a race enqueues one extra (idempotent) rebuild.
func (t *RecomputeTrigger) SaleCompleted(ctx context.Context) {
	if t == nil {
		return
	}
	count, err := t.rdb.Incr(ctx, salesCounterKey).Result()
	if err != nil {
		log.Error().Err(err).Msg("recompute_trigger: failed to bump sales counter")
		return
	}
	if int(count) < t.threshold {
		return
	}
	if err := t.rdb.Set(ctx, salesCounterKey, 0, 0).Err(); err != nil {
		log.Error().Err(err).Msg("recompute_trigger: failed to reset sales counter")
	}
	if err := t.dispatcher.EnqueueAssociationRebuild(ctx); err != nil {
		log.Error().Err(err).Msg("recompute_trigger: failed to enqueue rebuild")
		return
	}
	log.Info().Int64("sales", count).Msg("recompute_trigger: rebuild enqueued")
}
