package worker

// association_worker.go
// Processes batch recompute jobs from QueueAssociations: rebuilds the
// pairwise product association cache from the completed-sale history.
// The rebuild is upsert-only and idempotent, so overlapping or repeated
// runs are harmless.

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// AssociationRebuilder is the slice of the association service the worker
// needs. Wired at the composition root to avoid a package cycle.
type AssociationRebuilder interface {
	Rebuild(ctx context.Context) (int, error)
}

type AssociationWorker struct {
	rebuilder AssociationRebuilder
}

func NewAssociationWorker(rebuilder AssociationRebuilder) *AssociationWorker {
	return &AssociationWorker{rebuilder: rebuilder}
}

// Process runs one full cache rebuild. The payload is empty: the job always
// recomputes from the entire completed-sale history.
func (w *AssociationWorker) Process(ctx context.Context, _ json.RawMessage) error {
	count, err := w.rebuilder.Rebuild(ctx)
	if err != nil {
		log.Error().Err(err).Msg("association_worker: rebuild failed")
		return err
	}
	log.Info().Int("pairs", count).Msg("association_worker: cache rebuilt")
	return nil
}
