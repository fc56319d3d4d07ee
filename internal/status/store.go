// Package status maintains the client-side cache of ingestion job statuses,
// fed by the push channel with a polling fallback.
package status

import (
	"log/slog"
	"sync"

	"shodh/internal/api"
)

// Patch is a partial status update. Zero-valued / nil fields are absent and
// leave the cached value untouched; Title in particular is sticky once set.
type Patch struct {
	State      api.IngestionState
	Progress   *int
	Step       *string
	Title      string
	Error      *string
	ChunkCount *int
}

// Update is a change notification delivered to subscribers.
type Update struct {
	PaperID string
	Status  api.IngestionStatus
}

// Store is the single source of truth for ingestion statuses. Both channels
// write into it through Merge; the UI reads from it. Entries are never removed
// automatically: a terminal record stays until a fresh queued/pending record
// for the same paper restarts its lifecycle.
type Store struct {
	mu      sync.RWMutex
	entries map[string]api.IngestionStatus
	subs    map[int]chan Update
	nextSub int
	closed  bool
	log     *slog.Logger
}

// NewStore creates an empty status store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries: make(map[string]api.IngestionStatus),
		subs:    make(map[int]chan Update),
		log:     logger,
	}
}

// Get returns the cached status for a paper.
func (s *Store) Get(paperID string) (api.IngestionStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.entries[paperID]
	return st, ok
}

// All returns a snapshot of every cached status.
func (s *Store) All() []api.IngestionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.IngestionStatus, 0, len(s.entries))
	for _, st := range s.entries {
		out = append(out, st)
	}
	return out
}

// Seed registers a paper with an assumed queued status if nothing is cached
// yet, so it shows up in the UI before the first server update arrives.
func (s *Store) Seed(paperID, title string) {
	s.mu.RLock()
	_, exists := s.entries[paperID]
	s.mu.RUnlock()
	if exists {
		return
	}
	progress := 0
	s.Merge(paperID, Patch{State: api.StateQueued, Title: title, Progress: &progress})
}

// Merge applies a partial update and reports whether anything changed.
// Applying the same patch twice is a no-op the second time, which makes
// repeated delivery of one event harmless and suppresses redundant UI
// notifications.
//
// A terminal status is not regressed by a late non-terminal update unless
// that update is a fresh queued/pending record, which restarts the entry.
// Progress is stored as sent; the server is trusted not to walk it backwards
// within one run.
func (s *Store) Merge(paperID string, patch Patch) bool {
	if paperID == "" {
		return false
	}

	s.mu.Lock()
	cur, exists := s.entries[paperID]
	if !exists {
		cur = api.IngestionStatus{PaperID: paperID}
	}

	next := cur
	if patch.State != "" {
		if exists && cur.State.Terminal() && !patch.State.Terminal() && !patch.State.Restart() {
			s.log.Debug("ignoring non-terminal update for terminal job",
				"paper_id", paperID, "cached", cur.State, "incoming", patch.State)
		} else {
			next.State = patch.State
			if patch.State.Restart() && cur.State.Terminal() {
				// fresh job for the same paper
				next.Progress = 0
				next.Step = ""
				next.Error = ""
				next.ChunkCount = 0
			}
		}
	}
	if patch.Progress != nil {
		next.Progress = *patch.Progress
	}
	if patch.Step != nil {
		next.Step = *patch.Step
	}
	if patch.Title != "" {
		next.Title = patch.Title
	}
	if patch.Error != nil {
		next.Error = *patch.Error
	}
	if patch.ChunkCount != nil {
		next.ChunkCount = *patch.ChunkCount
	}

	if exists && next == cur {
		s.mu.Unlock()
		return false
	}
	s.entries[paperID] = next

	// Notify while still holding the lock: the sends are non-blocking, and
	// unsubscribe/Close close these channels under the same lock, so sending
	// outside it would race a close.
	update := Update{PaperID: paperID, Status: next}
	for _, ch := range s.subs {
		select {
		case ch <- update:
		default:
			// slow subscriber; it will catch up from All()
		}
	}
	s.mu.Unlock()
	return true
}

// Subscribe returns a channel of change notifications and an unsubscribe
// func. The channel is buffered; a subscriber that falls behind misses
// intermediate updates but can always re-read the full state via All.
func (s *Store) Subscribe() (<-chan Update, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Update, 64)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// Close tears the store down, closing all subscriber channels.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
