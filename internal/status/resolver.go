package status

import (
	"context"
	"log/slog"

	"shodh/internal/client"
)

// Resolver fetches the authoritative status of a single paper and merges it
// into the store. It exists because a paper disappearing from the active-job
// list is ambiguous: the job may have completed, failed, or merely been
// evicted from the server's in-memory set.
type Resolver struct {
	client *client.Client
	store  *Store
	log    *slog.Logger
}

// NewResolver creates a resolver writing into store.
func NewResolver(c *client.Client, store *Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: c, store: store, log: logger}
}

// Resolve fetches one paper's canonical status and merges it. A network
// failure is logged and the cached status left untouched: a failed fetch must
// never regress state to an earlier or unknown value. The cached title is
// preserved because the status endpoint does not return one.
func (r *Resolver) Resolve(ctx context.Context, paperID string) {
	result, err := r.client.IngestionStatus(ctx, paperID)
	if err != nil {
		r.log.Warn("status resolve failed, keeping cached value",
			"paper_id", paperID, "error", err)
		return
	}

	patch := Patch{
		State:      result.State,
		Progress:   result.Progress,
		Step:       result.Step,
		Error:      result.Error,
		ChunkCount: result.ChunkCount,
	}
	if r.store.Merge(paperID, patch) {
		r.log.Debug("resolved final status",
			"paper_id", paperID, "status", result.State)
	}
}
