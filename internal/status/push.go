package status

import (
	"context"
	"log/slog"
	"time"

	"shodh/internal/api"
	"shodh/internal/client"
	"shodh/internal/metrics"
)

// DefaultReconnectDelay is the fixed pause between reconnect attempts.
const DefaultReconnectDelay = 3 * time.Second

// PushChannel owns the live ingestion-event subscription. It reconnects with
// a fixed delay for as long as it runs; the only way to stop it is Close.
type PushChannel struct {
	client    *client.Client
	store     *Store
	log       *slog.Logger
	collector *metrics.Collector

	// ReconnectDelay is the fixed wait before reopening a failed
	// subscription. Set before Connect.
	ReconnectDelay time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPushChannel creates a push channel writing into store.
func NewPushChannel(c *client.Client, store *Store, logger *slog.Logger) *PushChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushChannel{
		client:         c,
		store:          store,
		log:            logger,
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// SetCollector attaches a metrics collector counting reconnects.
func (p *PushChannel) SetCollector(col *metrics.Collector) {
	p.collector = col
}

// Connect opens the subscription and keeps it alive in the background.
// Calling Connect twice without Close is a no-op.
func (p *PushChannel) Connect() {
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
}

func (p *PushChannel) run(ctx context.Context) {
	defer close(p.done)

	for {
		events, stop, err := p.client.Events(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("push subscription failed", "error", err)
		} else {
			p.log.Debug("push subscription open")
			for ev := range events {
				p.apply(ev)
			}
			stop()
			if ctx.Err() != nil {
				return
			}
			p.log.Debug("push subscription lost")
		}

		if p.collector != nil {
			p.collector.RecordReconnect()
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.ReconnectDelay):
		}
	}
}

func (p *PushChannel) apply(ev api.IngestionEvent) {
	if ev.Event != api.EventIngestionStatus {
		return
	}
	data := ev.Data
	if data.PaperID == "" {
		p.log.Debug("dropping push event without paper_id")
		return
	}

	patch := Patch{
		State:    data.Status,
		Progress: data.Progress,
		Step:     data.Step,
		Title:    data.Title,
	}
	if data.Error != "" {
		errMsg := data.Error
		patch.Error = &errMsg
	}
	p.store.Merge(data.PaperID, patch)
}

// Close tears down the subscription and stops reconnecting. It must be called
// on consumer teardown: a forgotten channel keeps an HTTP connection open and
// retries forever.
func (p *PushChannel) Close() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}
