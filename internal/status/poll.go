package status

import (
	"context"
	"log/slog"
	"time"

	"shodh/internal/client"
)

// DefaultPollInterval is the fallback reconciliation cadence. It is
// deliberately slower than the push channel: polling only matters when push
// is degraded or an event was dropped before delivery.
const DefaultPollInterval = 10 * time.Second

// PollChannel periodically fetches the active-job list, merges it, and
// resolves papers that vanished from the list without a terminal push event.
type PollChannel struct {
	client   *client.Client
	store    *Store
	resolver *Resolver
	log      *slog.Logger

	// Interval between ticks. Set before Start.
	Interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPollChannel creates a poll channel writing into store.
func NewPollChannel(c *client.Client, store *Store, resolver *Resolver, logger *slog.Logger) *PollChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollChannel{
		client:   c,
		store:    store,
		resolver: resolver,
		log:      logger,
		Interval: DefaultPollInterval,
	}
}

// Start begins ticking in the background. An immediate first tick runs before
// the interval wait. Calling Start twice without Close is a no-op.
func (p *PollChannel) Start() {
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
}

func (p *PollChannel) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one reconciliation pass:
//  1. fetch the active-job list and merge every entry,
//  2. find cached papers whose status is non-terminal but that the list no
//     longer mentions,
//  3. resolve each such paper's authoritative status instead of guessing.
//
// A fetch failure skips the pass entirely; retrying next tick is cheaper than
// resolving against a list we do not have.
func (p *PollChannel) Tick(ctx context.Context) {
	jobs, err := p.client.ActiveJobs(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("active-jobs poll failed", "error", err)
		}
		return
	}

	active := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if job.PaperID == "" {
			continue
		}
		active[job.PaperID] = struct{}{}

		progress := job.Progress
		step := job.Step
		p.store.Merge(job.PaperID, Patch{
			State:    job.Status,
			Progress: &progress,
			Step:     &step,
			Title:    job.Title,
		})
	}

	for _, cached := range p.store.All() {
		if cached.State.Terminal() {
			continue
		}
		if _, ok := active[cached.PaperID]; ok {
			continue
		}
		p.resolver.Resolve(ctx, cached.PaperID)
	}
}

// Close stops the loop. Must be called on teardown so the ticker does not
// keep firing against a discarded store.
func (p *PollChannel) Close() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}
