package assistant

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageLog is the append-only ordered record of exchanged messages.
// Entries are never removed or reordered; length only grows.
type MessageLog struct {
	mu      sync.RWMutex
	entries []Message
}

// NewMessageLog creates an empty log
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Append adds a message to the end of the log and returns it
func (l *MessageLog) Append(origin Origin, text string) Message {
	msg := Message{
		ID:     uuid.NewString(),
		Origin: origin,
		Text:   text,
		Time:   time.Now().UTC(),
	}

	l.mu.Lock()
	l.entries = append(l.entries, msg)
	l.mu.Unlock()

	return msg
}

// Messages returns a copy of the log in append order
func (l *MessageLog) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Message, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of messages in the log
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Last returns the most recent message, or false when the log is empty
func (l *MessageLog) Last() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return Message{}, false
	}
	return l.entries[len(l.entries)-1], true
}
