// Package client provides the HTTP client for the Shodh research assistant API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"shodh/internal/api"
	"shodh/internal/metrics"
)

const defaultBaseURL = "http://localhost:8000/api"

// Client talks to the Shodh server. Plain request/response calls go through
// resty; the two streaming endpoints (chat, ingestion events) use a dedicated
// http.Client without a global timeout so long-lived bodies are not cut off.
type Client struct {
	baseURL   string
	rest      *resty.Client
	streaming *http.Client
	log       *slog.Logger
	collector *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for transport-level events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// WithTimeout sets the timeout for non-streaming requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.rest.SetTimeout(d) }
}

// WithCollector attaches a metrics collector recording per-call timings.
func WithCollector(col *metrics.Collector) Option {
	return func(c *Client) { c.collector = col }
}

// New creates a client for the given base URL. If baseURL is empty the
// SHODH_SERVER_URL env var is used, then the localhost default.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SHODH_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	c := &Client{
		baseURL: baseURL,
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetHeader("Accept", "application/json"),
		streaming: &http.Client{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server error %d", e.StatusCode)
}

// decodeAPIError extracts the server's {"detail": ...} error payload.
func decodeAPIError(status int, body []byte) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Detail == "" {
		return &APIError{StatusCode: status, Detail: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: status, Detail: payload.Detail}
}

// getJSON performs a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	start := time.Now()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	c.recordRequest(start)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return decodeAPIError(resp.StatusCode(), resp.Body())
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

// postJSON performs a POST with a JSON body and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	start := time.Now()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	c.recordRequest(start)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	if resp.IsError() {
		return decodeAPIError(resp.StatusCode(), resp.Body())
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) deleteJSON(ctx context.Context, path string, out any) error {
	start := time.Now()
	resp, err := c.rest.R().SetContext(ctx).Delete(path)
	c.recordRequest(start)
	if err != nil {
		return fmt.Errorf("DELETE %s: %w", path, err)
	}
	if resp.IsError() {
		return decodeAPIError(resp.StatusCode(), resp.Body())
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) recordRequest(start time.Time) {
	if c.collector != nil {
		c.collector.RecordTiming(metrics.OpRequest, time.Since(start))
	}
}

// ingestionStatusResponse is the wire shape of GET /ingestion-status/{id}.
// progress and step are only present while a job is being tracked.
type ingestionStatusResponse struct {
	PaperID         string             `json:"paper_id"`
	IngestionStatus api.IngestionState `json:"ingestion_status"`
	Progress        *int               `json:"progress,omitempty"`
	Step            *string            `json:"step,omitempty"`
	ChunkCount      *int               `json:"chunk_count,omitempty"`
	PDFPath         string             `json:"pdf_path,omitempty"`
	IngestedAt      string             `json:"ingested_at,omitempty"`
	Error           *string            `json:"error,omitempty"`
}

// IngestionStatusResult is the canonical answer for one paper. Optional
// fields stay nil when the server omitted them, so callers can distinguish
// "zero" from "absent" when merging into a status cache.
type IngestionStatusResult struct {
	PaperID    string
	State      api.IngestionState
	Progress   *int
	Step       *string
	ChunkCount *int
	Error      *string
}

// IngestionStatus fetches the authoritative ingestion status of one paper.
func (c *Client) IngestionStatus(ctx context.Context, paperID string) (*IngestionStatusResult, error) {
	start := time.Now()
	var resp ingestionStatusResponse
	err := c.getJSON(ctx, "/ingestion-status/"+paperID, nil, &resp)
	if c.collector != nil {
		c.collector.RecordTiming(metrics.OpStatusResolve, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return &IngestionStatusResult{
		PaperID:    resp.PaperID,
		State:      resp.IngestionStatus,
		Progress:   resp.Progress,
		Step:       resp.Step,
		ChunkCount: resp.ChunkCount,
		Error:      resp.Error,
	}, nil
}

// ActiveJobs fetches the list of ingestion jobs the server is tracking.
func (c *Client) ActiveJobs(ctx context.Context) ([]api.ActiveJob, error) {
	var jobs []api.ActiveJob
	if err := c.getJSON(ctx, "/ingestion/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Conversations lists conversation summaries for a paper or a project.
// Exactly one of paperID / projectID should be set.
func (c *Client) Conversations(ctx context.Context, paperID string, projectID api.ID) ([]api.Conversation, error) {
	query := map[string]string{}
	if paperID != "" {
		query["paper_id"] = paperID
	} else if projectID != "" {
		query["project_id"] = string(projectID)
	}
	var convs []api.Conversation
	if err := c.getJSON(ctx, "/conversations", query, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// CreateConversation opens a fresh conversation thread.
func (c *Client) CreateConversation(ctx context.Context, paperID string, projectID api.ID, title string) (*api.Conversation, error) {
	body := map[string]any{}
	if paperID != "" {
		body["paper_id"] = paperID
	}
	if projectID != "" {
		body["project_id"] = projectID
	}
	if title != "" {
		body["title"] = title
	}
	var conv api.Conversation
	if err := c.postJSON(ctx, "/conversations", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ConversationMessages fetches the full message history of a conversation.
func (c *Client) ConversationMessages(ctx context.Context, id api.ID) ([]api.ChatMessage, error) {
	var msgs []api.ChatMessage
	if err := c.getJSON(ctx, fmt.Sprintf("/conversations/%s/messages", id), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
