package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shodh/internal/api"
	"shodh/internal/client"
)

func TestChatStreamBranch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat", r.URL.Path)

		var req api.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What is attention?", req.Message)
		assert.NotNil(t, req.History, "history must be present even when empty")

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, `{"conversation_id": 42, "mode": "default", "citations": []}`+"\n")
		io.WriteString(w, "Attention is a mechanism")
	}))
	t.Cleanup(server.Close)
	c := client.New(server.URL)

	reply, err := c.Chat(context.Background(), api.ChatRequest{
		Message: "What is attention?",
		PaperID: "2401.12345",
	})
	require.NoError(t, err)
	require.Nil(t, reply.Job)
	require.NotNil(t, reply.Stream)
	defer reply.Stream.Close()

	raw, err := io.ReadAll(reply.Stream)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Attention is a mechanism")
}

func TestChatJobBranch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.UseAgent)
		assert.True(t, req.UseJob)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.JobHandle{
			JobID:          "job-abc",
			ConversationID: "42",
			Status:         "queued",
			Message:        "Agent run queued",
		})
	}))
	t.Cleanup(server.Close)
	c := client.New(server.URL)

	reply, err := c.Chat(context.Background(), api.ChatRequest{
		Message:  "Compare against prior work",
		PaperID:  "2401.12345",
		UseAgent: true,
		UseJob:   true,
	})
	require.NoError(t, err)
	require.Nil(t, reply.Stream)
	require.NotNil(t, reply.Job)
	assert.Equal(t, "job-abc", reply.Job.JobID)
	assert.Equal(t, api.ID("42"), reply.Job.ConversationID)
}

func TestChatJSONWithoutJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status": "ok"}`)
	}))
	t.Cleanup(server.Close)
	c := client.New(server.URL)

	_, err := c.Chat(context.Background(), api.ChatRequest{Message: "hi", PaperID: "p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job_id")
}

func TestChatEmptyMessage(t *testing.T) {
	c := client.New("http://localhost:1")
	_, err := c.Chat(context.Background(), api.ChatRequest{Message: "   "})
	require.Error(t, err)
}

func TestChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"detail": "paper not ingested"})
	}))
	t.Cleanup(server.Close)
	c := client.New(server.URL)

	_, err := c.Chat(context.Background(), api.ChatRequest{Message: "hi", PaperID: "p1"})
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "paper not ingested", apiErr.Detail)
}
