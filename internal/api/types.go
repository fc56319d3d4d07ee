// Package api defines the wire types exchanged with the Shodh server.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// ID is a server-assigned identifier. The server emits ids inconsistently as
// JSON strings or numbers depending on the endpoint, so decoding accepts both.
type ID string

// UnmarshalJSON accepts a JSON string, number, or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits the id as a number when it is numeric, matching what the
// server handed out, and as a string otherwise.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

// IngestionState is the lifecycle state of a paper ingestion job.
type IngestionState string

const (
	StateQueued      IngestionState = "queued"
	StatePending     IngestionState = "pending"
	StateDownloading IngestionState = "downloading"
	StateParsing     IngestionState = "parsing"
	StateIndexing    IngestionState = "indexing"
	StateProcessing  IngestionState = "processing"
	StateCompleted   IngestionState = "completed"
	StateFailed      IngestionState = "failed"
)

// Terminal reports whether the state is final for this job run.
func (s IngestionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Restart reports whether the state marks the start of a fresh job for the
// same paper, which logically resets the entry's lifecycle.
func (s IngestionState) Restart() bool {
	return s == StateQueued || s == StatePending
}

// IngestionStatus is the cached view of one paper's ingestion job. Progress is
// the 0-100 job percentage; ChunkCount is the number of indexed chunks the
// server reports after completion. The two are kept separate even though some
// server paths historically conflated them.
type IngestionStatus struct {
	PaperID    string         `json:"paper_id"`
	State      IngestionState `json:"status"`
	Progress   int            `json:"progress"`
	Step       string         `json:"step"`
	Title      string         `json:"title"`
	Error      string         `json:"error,omitempty"`
	ChunkCount int            `json:"chunk_count,omitempty"`
}

// ActiveJob is one entry of the server's in-memory active-job list. Entries
// exist only while the job is tracked server-side; a paper vanishing from the
// list is ambiguous and must be resolved with an explicit status fetch.
type ActiveJob struct {
	PaperID  string         `json:"paper_id"`
	Title    string         `json:"title"`
	Status   IngestionState `json:"status"`
	Progress int            `json:"progress"`
	Step     string         `json:"step"`
}

// IngestionEvent is one event from the /events/ingestion push stream.
type IngestionEvent struct {
	Event     string             `json:"event"`
	Data      IngestionEventData `json:"data"`
	Timestamp string             `json:"timestamp"`
}

// EventIngestionStatus is the only event type the client acts on.
const EventIngestionStatus = "ingestion_status"

// IngestionEventData is the payload of an ingestion_status event. Progress
// and Step are pointers so a sparse event that omits them leaves the cached
// values alone instead of merging zeroes.
type IngestionEventData struct {
	PaperID  string         `json:"paper_id"`
	Status   IngestionState `json:"status"`
	Progress *int           `json:"progress,omitempty"`
	Step     *string        `json:"step,omitempty"`
	Title    string         `json:"title,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Citation is a retrieved passage backing part of an assistant answer.
// Immutable once attached to a message.
type Citation struct {
	Index        int     `json:"id,omitempty"`
	Content      string  `json:"content"`
	Section      string  `json:"section"`
	PaperID      string  `json:"paper_id,omitempty"`
	SectionTitle string  `json:"section_title,omitempty"`
	PageNumber   *int    `json:"page_number,omitempty"`
	Figures      string  `json:"figures,omitempty"`
	Score        float64 `json:"score"`
	Summary      string  `json:"summary,omitempty"`
}

// Role of a chat message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one message in a conversation. Content of the trailing
// assistant message is mutated in place while a reply streams; everything
// else is append-only.
type ChatMessage struct {
	ID        string     `json:"id,omitempty"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations"`
	Mode      string     `json:"mode,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
}

// Conversation is a chat-thread summary. Exactly one of PaperID / ProjectID
// is set, depending on the chat context.
type Conversation struct {
	ID           ID     `json:"id"`
	PaperID      string `json:"paper_id,omitempty"`
	ProjectID    ID     `json:"project_id,omitempty"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	MessageCount int    `json:"message_count"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message        string           `json:"message"`
	ConversationID ID               `json:"conversation_id,omitempty"`
	PaperID        string           `json:"paper_id,omitempty"`
	ProjectID      ID               `json:"project_id,omitempty"`
	History        []HistoryMessage `json:"history"`
	UseAgent       bool             `json:"use_agent"`
	UseJob         bool             `json:"use_job,omitempty"`
}

// HistoryMessage is the reduced message shape sent back as chat history.
type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// JobHandle is returned by POST /chat when the server defers the answer to a
// background job. It only matters for the duration of the poll-to-completion
// cycle.
type JobHandle struct {
	JobID          string `json:"job_id"`
	ConversationID ID     `json:"conversation_id"`
	Status         string `json:"status,omitempty"`
	Message        string `json:"message,omitempty"`
}

// ChatReply is the decoded result of POST /chat. Exactly one branch is set:
// Job when the server chose asynchronous agent processing, Stream when it
// answered with the hybrid metadata+text body. The caller owns closing Stream.
type ChatReply struct {
	Job    *JobHandle
	Stream io.ReadCloser
}

// StreamMeta is the one-line JSON header that opens a hybrid chat stream.
type StreamMeta struct {
	ConversationID ID         `json:"conversation_id"`
	Mode           string     `json:"mode"`
	Citations      []Citation `json:"citations"`
	OriginalQuery  string     `json:"original_query,omitempty"`
	RewrittenQuery string     `json:"rewritten_query,omitempty"`
}

// Paper is a feed or library entry.
type Paper struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Abstract        string         `json:"abstract,omitempty"`
	Source          string         `json:"source,omitempty"`
	URL             string         `json:"url,omitempty"`
	PublishedDate   string         `json:"published_date,omitempty"`
	Authors         string         `json:"authors,omitempty"`
	IsFavorited     bool           `json:"is_favorited"`
	IsSaved         bool           `json:"is_saved"`
	GithubURL       string         `json:"github_url,omitempty"`
	ProjectPage     string         `json:"project_page,omitempty"`
	ProjectIDs      []ID           `json:"project_ids,omitempty"`
	IngestionStatus IngestionState `json:"ingestion_status,omitempty"`
}

// Project groups papers for cross-paper chat.
type Project struct {
	ID                 ID     `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	ResearchDimensions string `json:"research_dimensions,omitempty"`
	CreatedAt          string `json:"created_at"`
	PaperCount         int    `json:"paper_count"`
}
