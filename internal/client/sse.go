package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"shodh/internal/api"
	"shodh/internal/metrics"
)

// Events opens the ingestion push stream and delivers parsed events on the
// returned channel until the stream ends or the cancel func is called. The
// channel is closed on teardown, so a plain range loop over it terminates.
// Malformed payloads are logged and dropped; they never stop the stream.
//
// Reconnecting after a transport failure is the caller's policy, not this
// method's: one call = one subscription.
func (c *Client) Events(ctx context.Context) (<-chan api.IngestionEvent, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events/ingestion", nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streaming.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		cancel()
		return nil, nil, &APIError{StatusCode: resp.StatusCode}
	}

	ch := make(chan api.IngestionEvent, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		start := time.Now()
		count := 0
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var dataLines []string

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				if len(dataLines) == 0 {
					continue
				}
				payload := strings.Join(dataLines, "\n")
				dataLines = dataLines[:0]

				var event api.IngestionEvent
				if err := json.Unmarshal([]byte(payload), &event); err != nil {
					c.log.Debug("dropping malformed push event", "error", err)
					continue
				}
				if c.collector != nil {
					c.collector.RecordStream(metrics.OpPushEvent, 0, int64(len(payload)))
				}
				select {
				case ch <- event:
					count++
				case <-ctx.Done():
					return
				}
				continue
			}
			if strings.HasPrefix(line, ":") {
				// keepalive comment
				continue
			}
			if strings.HasPrefix(line, "data:") {
				dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			c.log.Debug("push stream read error", "error", err)
		}
		c.log.Debug("push stream closed", "events", count, "dur", time.Since(start))
	}()

	return ch, cancel, nil
}
