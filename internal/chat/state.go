// Package chat holds conversation state and the engine that materializes
// assistant replies from the server's two response shapes.
package chat

import (
	"sync"

	"github.com/google/uuid"

	"shodh/internal/api"
)

// State holds the message list and active conversation for one chat context
// (a paper or a project). It is owned by exactly one view at a time and
// mutated only through its methods. The message list is append-only except
// for the trailing assistant placeholder, which streams in place.
type State struct {
	mu            sync.RWMutex
	messages      []api.ChatMessage
	conversations []api.Conversation
	activeID      api.ID
	loading       bool
}

// NewState creates empty conversation state.
func NewState() *State {
	return &State{}
}

// Messages returns a copy of the message list.
func (s *State) Messages() []api.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Conversations returns the cached conversation summaries.
func (s *State) Conversations() []api.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// SetConversations replaces the cached summaries.
func (s *State) SetConversations(convs []api.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = convs
}

// ActiveConversation returns the current conversation id, if any.
func (s *State) ActiveConversation() api.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// AdoptConversation records the conversation id once the server reveals it
// (first streamed metadata line, or a job handle). An already-known id wins.
func (s *State) AdoptConversation(id api.ID) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" {
		s.activeID = id
	}
}

// Loading reports whether a send is in flight for this context.
func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// beginSend flips the loading flag, refusing when a send is already in
// flight. The flag is what serializes sends per context.
func (s *State) beginSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false
	}
	s.loading = true
	return true
}

func (s *State) endSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

// AppendMessage appends a message, assigning a local id if it has none.
func (s *State) AppendMessage(msg api.ChatMessage) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Citations == nil {
		msg.Citations = []api.Citation{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// AppendToLastAssistant appends streamed text to the trailing assistant
// message. A no-op when the last message is not an assistant message, which
// legitimately happens if state was reset mid-stream.
func (s *State) AppendToLastAssistant(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last := len(s.messages) - 1
	if last < 0 || s.messages[last].Role != api.RoleAssistant {
		return
	}
	s.messages[last].Content += text
}

// UpdateLastAssistant attaches citations and/or a mode label to the trailing
// assistant message. Same no-op rule as AppendToLastAssistant.
func (s *State) UpdateLastAssistant(citations []api.Citation, mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := len(s.messages) - 1
	if last < 0 || s.messages[last].Role != api.RoleAssistant {
		return
	}
	if citations != nil {
		s.messages[last].Citations = citations
	}
	if mode != "" {
		s.messages[last].Mode = mode
	}
}

// LastMessage returns the trailing message.
func (s *State) LastMessage() (api.ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return api.ChatMessage{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// ReplaceAll swaps in an authoritative message list, e.g. after a background
// job completed or a conversation was loaded from the sidebar.
func (s *State) ReplaceAll(messages []api.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make([]api.ChatMessage, len(messages))
	copy(s.messages, messages)
	for i := range s.messages {
		if s.messages[i].Citations == nil {
			s.messages[i].Citations = []api.Citation{}
		}
	}
}

// StartNewChat clears messages and the active conversation id, used when the
// user explicitly starts a fresh thread.
func (s *State) StartNewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.activeID = ""
}

// setActive replaces the active id unconditionally (conversation load).
func (s *State) setActive(id api.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

// History returns the bounded tail of messages to send back with a request,
// at most limit entries, excluding empty placeholders.
func (s *State) History(limit int) []api.HistoryMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && len(s.messages) > limit {
		start = len(s.messages) - limit
	}
	out := make([]api.HistoryMessage, 0, len(s.messages)-start)
	for _, msg := range s.messages[start:] {
		if msg.Content == "" {
			continue
		}
		out = append(out, api.HistoryMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}
