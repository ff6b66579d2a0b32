// Package domain holds the core assessment entities.
package domain

import (
	"strings"
	"sync"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single conversation turn. Messages are immutable once
// appended to a session.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session holds the state of one participant's assessment conversation.
//
// Two mutexes guard a session: mu protects the mutable fields, while turnMu
// serializes whole conversational exchanges so concurrent requests against
// the same session cannot interleave message appends with turn counting.
// Sessions for different participants never share either lock.
type Session struct {
	ID               string
	Mode             string
	StartedAt        time.Time
	DurationMinutes  int
	UserName         string
	UserEmail        string
	ConsentGranted   bool
	ConsentGrantedAt time.Time

	mu           sync.Mutex
	standardID   string
	questionPlan []string
	messages     []ChatMessage
	turnCount    int
	audioPath    string
	finishedAt   time.Time

	turnMu sync.Mutex
}

// Lock serializes a full conversational exchange (append user message,
// compute reply, append reply, count the turn) on this session.
func (s *Session) Lock() { s.turnMu.Lock() }

// Unlock releases the exchange lock.
func (s *Session) Unlock() { s.turnMu.Unlock() }

// AddMessage appends a message to the session transcript.
func (s *Session) AddMessage(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, ChatMessage{Role: role, Content: content})
}

// Transcript returns a copy of the message sequence in append order.
func (s *Session) Transcript() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// IncrementTurn increments and returns the user-turn counter.
func (s *Session) IncrementTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount++
	return s.turnCount
}

// TurnCount returns the number of completed user turns.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount
}

// Plan returns the question plan, or nil if none has been assigned yet.
func (s *Session) Plan() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionPlan
}

// SetPlan assigns the question plan. The plan is immutable once set;
// later calls are ignored.
func (s *Session) SetPlan(plan []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questionPlan) > 0 {
		return
	}
	s.questionPlan = plan
}

// Standard returns the assessment standard assigned to this session,
// or "" if none has been assigned yet.
func (s *Session) Standard() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.standardID
}

// SetStandard assigns the assessment standard. Assigned once; later calls
// are ignored.
func (s *Session) SetStandard(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.standardID != "" {
		return
	}
	s.standardID = id
}

// AudioPath returns the stored audio recording path, if any.
func (s *Session) AudioPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioPath
}

// SetAudioPath records where the session's audio recording was stored.
func (s *Session) SetAudioPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioPath = path
}

// Finish marks the session as finished. The first call wins.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finishedAt.IsZero() {
		s.finishedAt = time.Now()
	}
}

// FinishedAt returns when the session was finished, zero if still running.
func (s *Session) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

// WordCount counts whitespace-separated words across all user messages.
func (s *Session) WordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.messages {
		if m.Role == RoleUser {
			count += len(strings.Fields(m.Content))
		}
	}
	return count
}

// DurationSeconds returns the elapsed session time in seconds, measured to
// the finish time if the session was finished, otherwise to now.
func (s *Session) DurationSeconds() float64 {
	s.mu.Lock()
	end := s.finishedAt
	s.mu.Unlock()
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt).Seconds()
}
