package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"shodh/internal/api"
)

// Chat sends one user message. The server chooses the response shape at run
// time: a JSON job handle when it defers to a background agent job, or a
// hybrid stream whose first line is JSON metadata and whose remainder is raw
// assistant text. The shape is decoded here, at the boundary, so callers
// pattern-match on ChatReply instead of probing the body.
//
// When ChatReply.Stream is non-nil the caller must close it. The request is
// issued on the streaming http.Client: only ctx bounds its lifetime.
func (c *Client) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatReply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("chat: empty message")
	}
	if req.History == nil {
		req.History = []api.HistoryMessage{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("chat: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chat: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.streaming.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, decodeAPIError(resp.StatusCode, raw)
	}

	if isJSONResponse(resp.Header.Get("Content-Type")) {
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("chat: read job response: %w", err)
		}
		var handle api.JobHandle
		if err := json.Unmarshal(raw, &handle); err != nil {
			return nil, fmt.Errorf("chat: decode job response: %w", err)
		}
		if handle.JobID == "" {
			return nil, fmt.Errorf("chat: JSON response without job_id")
		}
		c.log.Debug("chat deferred to background job",
			"job_id", handle.JobID, "conversation_id", handle.ConversationID)
		return &api.ChatReply{Job: &handle}, nil
	}

	return &api.ChatReply{Stream: resp.Body}, nil
}

func isJSONResponse(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json"
}
