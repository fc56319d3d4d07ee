package status_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shodh/internal/api"
	"shodh/internal/client"
	"shodh/internal/status"
)

func newPollFixture(t *testing.T, handler http.Handler) (*client.Client, *status.Store, *status.PollChannel) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := client.New(server.URL)
	store := status.NewStore(nil)
	t.Cleanup(store.Close)
	resolver := status.NewResolver(c, store, nil)
	return c, store, status.NewPollChannel(c, store, resolver, nil)
}

func TestTickMergesActiveJobs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ingestion/jobs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.ActiveJob{
			{PaperID: "p1", Title: "Paper One", Status: api.StateParsing, Progress: 40, Step: "Parsing PDF"},
			{PaperID: "p2", Title: "Paper Two", Status: api.StateDownloading, Progress: 10, Step: "Downloading"},
		})
	})

	_, store, poll := newPollFixture(t, mux)
	poll.Tick(context.Background())

	got, ok := store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, api.StateParsing, got.State)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "Paper One", got.Title)

	got, ok = store.Get("p2")
	require.True(t, ok)
	assert.Equal(t, api.StateDownloading, got.State)
}

func TestTickResolvesVanishedJobs(t *testing.T) {
	var resolveCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/ingestion/jobs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.ActiveJob{})
	})
	mux.HandleFunc("/ingestion-status/gone", func(w http.ResponseWriter, r *http.Request) {
		resolveCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"paper_id":         "gone",
			"ingestion_status": "completed",
			"chunk_count":      87,
		})
	})

	_, store, poll := newPollFixture(t, mux)

	// Cached as in-flight, but the server no longer lists it.
	progress := 90
	store.Merge("gone", status.Patch{State: api.StateIndexing, Progress: &progress})

	poll.Tick(context.Background())

	assert.Equal(t, int64(1), resolveCalls.Load(), "vanished paper should be resolved exactly once per tick")

	got, _ := store.Get("gone")
	assert.Equal(t, api.StateCompleted, got.State)
	assert.Equal(t, 87, got.ChunkCount)
}

func TestTickSkipsTerminalEntries(t *testing.T) {
	var resolveCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/ingestion/jobs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.ActiveJob{})
	})
	mux.HandleFunc("/ingestion-status/", func(w http.ResponseWriter, r *http.Request) {
		resolveCalls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, store, poll := newPollFixture(t, mux)

	store.Merge("done", status.Patch{State: api.StateCompleted})
	store.Merge("dead", status.Patch{State: api.StateFailed})

	poll.Tick(context.Background())

	assert.Zero(t, resolveCalls.Load(), "terminal entries need no resolution")
}

func TestTickSkipsPassOnListFailure(t *testing.T) {
	var resolveCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/ingestion/jobs", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "boom"}`, http.StatusInternalServerError)
	})
	mux.HandleFunc("/ingestion-status/", func(w http.ResponseWriter, r *http.Request) {
		resolveCalls.Add(1)
	})

	_, store, poll := newPollFixture(t, mux)

	progress := 50
	store.Merge("p1", status.Patch{State: api.StateParsing, Progress: &progress})

	poll.Tick(context.Background())

	assert.Zero(t, resolveCalls.Load(), "a failed list fetch should skip the whole pass")

	got, _ := store.Get("p1")
	assert.Equal(t, api.StateParsing, got.State, "cache stays untouched on a failed pass")
}

func TestResolverKeepsCacheOnFetchFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ingestion-status/p1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "unavailable"}`, http.StatusServiceUnavailable)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := client.New(server.URL)
	store := status.NewStore(nil)
	t.Cleanup(store.Close)

	progress := 75
	store.Merge("p1", status.Patch{State: api.StateIndexing, Progress: &progress})

	status.NewResolver(c, store, nil).Resolve(context.Background(), "p1")

	got, _ := store.Get("p1")
	assert.Equal(t, api.StateIndexing, got.State)
	assert.Equal(t, 75, got.Progress)
}
