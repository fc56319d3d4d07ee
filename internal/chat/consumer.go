package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"shodh/internal/api"
	"shodh/internal/client"
	"shodh/internal/metrics"
)

// Poll-to-completion defaults for the background-job branch.
const (
	DefaultJobPollInterval = 2 * time.Second
	DefaultJobPollCeiling  = 5 * time.Minute
)

// ErrBusy is returned when a send is attempted while one is already in
// flight for the same context.
var ErrBusy = errors.New("a message is already in flight for this conversation")

// ErrEmptyMessage is returned for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Consumer sends user messages and materializes assistant replies into a
// State, whichever response shape the server picks. At most one send is in
// flight per context; later failures are surfaced inline on the assistant
// message so partial streamed content survives.
type Consumer struct {
	client    *client.Client
	state     *State
	log       *slog.Logger
	collector *metrics.Collector

	// Context: exactly one of PaperID / ProjectID is set.
	PaperID   string
	ProjectID api.ID

	// HistoryLimit bounds the message tail echoed back with each request.
	HistoryLimit int

	// JobPollInterval / JobPollCeiling govern the poll-to-completion cycle
	// of the background-job branch. The ceiling self-cancels client-side
	// observation only; the server job keeps running.
	JobPollInterval time.Duration
	JobPollCeiling  time.Duration
}

// NewConsumer creates a consumer bound to one chat context.
func NewConsumer(c *client.Client, state *State, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		client:          c,
		state:           state,
		log:             logger,
		HistoryLimit:    10,
		JobPollInterval: DefaultJobPollInterval,
		JobPollCeiling:  DefaultJobPollCeiling,
	}
}

// SetCollector attaches a metrics collector recording stream sizes.
func (c *Consumer) SetCollector(col *metrics.Collector) {
	c.collector = col
}

// State returns the conversation state this consumer mutates.
func (c *Consumer) State() *State {
	return c.state
}

// SendOptions tune one send.
type SendOptions struct {
	// UseAgent requests multi-step agentic reasoning.
	UseAgent bool
	// UseJob asks the server to run agent mode as a background job.
	UseJob bool
	// OnDelta, when set, observes every piece of text as it lands on the
	// assistant message: streamed chunks, the job-branch final answer, and
	// inline error notes.
	OnDelta func(text string)
}

// Send submits one user message and blocks until the assistant reply is
// complete (stream drained or job finished). Precondition violations are
// returned as errors; failures after the request is under way are absorbed
// into the assistant message as an inline note, preserving partial content,
// and reported as a nil return.
func (c *Consumer) Send(ctx context.Context, text string, opts SendOptions) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if !c.state.beginSend() {
		return ErrBusy
	}
	defer c.state.endSend()

	history := c.state.History(c.HistoryLimit)

	c.state.AppendMessage(api.ChatMessage{Role: api.RoleUser, Content: text})
	c.state.AppendMessage(api.ChatMessage{Role: api.RoleAssistant})

	req := api.ChatRequest{
		Message:        text,
		ConversationID: c.state.ActiveConversation(),
		PaperID:        c.PaperID,
		ProjectID:      c.ProjectID,
		History:        history,
		UseAgent:       opts.UseAgent,
		UseJob:         opts.UseJob,
	}

	reply, err := c.client.Chat(ctx, req)
	if err != nil {
		c.fail(opts, err)
		return nil
	}

	if reply.Job != nil {
		c.pollJob(ctx, reply.Job, opts)
		return nil
	}
	c.consumeStream(reply.Stream, opts)
	return nil
}

// fail appends an inline error note to the assistant message rather than
// replacing it, so whatever already streamed stays visible.
func (c *Consumer) fail(opts SendOptions, err error) {
	c.log.Warn("chat send failed", "error", err)
	note := fmt.Sprintf("\n\n[Error: %v]", err)
	c.state.AppendToLastAssistant(note)
	if opts.OnDelta != nil {
		opts.OnDelta(note)
	}
}

// consumeStream drains the hybrid metadata+text body into the placeholder.
func (c *Consumer) consumeStream(stream io.ReadCloser, opts SendOptions) {
	defer stream.Close()

	start := time.Now()
	var total int64
	parser := &headerParser{}
	buf := make([]byte, 4096)

	appendBody := func(body []byte) {
		if len(body) == 0 {
			return
		}
		total += int64(len(body))
		text := string(body)
		c.state.AppendToLastAssistant(text)
		if opts.OnDelta != nil {
			opts.OnDelta(text)
		}
	}

	for {
		n, err := stream.Read(buf)
		if n > 0 {
			meta, body := parser.Feed(buf[:n])
			if meta != nil {
				c.applyMeta(meta)
			}
			appendBody(body)
		}
		if err == io.EOF {
			appendBody(parser.Flush())
			break
		}
		if err != nil {
			appendBody(parser.Flush())
			c.fail(opts, err)
			break
		}
	}

	if c.collector != nil {
		c.collector.RecordStream(metrics.OpChatStream, time.Since(start), total)
	}
}

func (c *Consumer) applyMeta(meta *api.StreamMeta) {
	c.state.AdoptConversation(meta.ConversationID)
	if len(meta.Citations) > 0 || meta.Mode != "" {
		c.state.UpdateLastAssistant(meta.Citations, meta.Mode)
	}
}

// pollJob watches a background agent job by refetching the conversation's
// messages until the last one is an assistant reply, then adopts the
// authoritative list. Hitting the ceiling stops observation with an inline
// timeout note; the server-side job itself is not cancelled.
func (c *Consumer) pollJob(ctx context.Context, job *api.JobHandle, opts SendOptions) {
	c.state.AdoptConversation(job.ConversationID)

	convID := job.ConversationID
	if convID == "" {
		convID = c.state.ActiveConversation()
	}
	if convID == "" {
		c.fail(opts, errors.New("job handle without conversation id"))
		return
	}

	start := time.Now()
	deadline := start.Add(c.JobPollCeiling)
	ticker := time.NewTicker(c.JobPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.fail(opts, ctx.Err())
			return
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			c.fail(opts, fmt.Errorf("agent job timed out after %s", c.JobPollCeiling))
			return
		}

		msgs, err := c.client.ConversationMessages(ctx, convID)
		if err != nil {
			// transient; keep polling until the ceiling
			c.log.Debug("job poll fetch failed", "error", err)
			continue
		}
		if len(msgs) == 0 || msgs[len(msgs)-1].Role != api.RoleAssistant {
			continue
		}

		c.state.ReplaceAll(msgs)
		if c.collector != nil {
			c.collector.RecordTiming(metrics.OpJobPoll, time.Since(start))
		}
		if opts.OnDelta != nil {
			opts.OnDelta(msgs[len(msgs)-1].Content)
		}
		return
	}
}

// LoadConversation fetches a conversation's history and makes it active.
func (c *Consumer) LoadConversation(ctx context.Context, id api.ID) error {
	msgs, err := c.client.ConversationMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("load conversation %s: %w", id, err)
	}
	c.state.ReplaceAll(msgs)
	c.state.setActive(id)
	return nil
}

// RefreshConversations updates the sidebar summaries for this context.
func (c *Consumer) RefreshConversations(ctx context.Context) error {
	convs, err := c.client.Conversations(ctx, c.PaperID, c.ProjectID)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	c.state.SetConversations(convs)
	return nil
}
