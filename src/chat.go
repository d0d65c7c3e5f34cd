package src

import (
	"sync"
	"time"
)

// Message is one turn in the conversation transcript.
type Message struct {
	Role      string    `json:"role"` // "user" or "ai"
	Content   string    `json:"content"`
	Type      string    `json:"type"` // "text", "plan", "error"
	CreatedAt time.Time `json:"createdAt"`
}

// ChatLog is the append-only transcript of user/assistant turns. The plan
// engine never reads it; it only receives notifications of plan outcomes.
type ChatLog struct {
	mu       sync.Mutex
	messages []Message
}

func NewChatLog() *ChatLog {
	return &ChatLog{}
}

func (l *ChatLog) Append(role, content, msgType string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, Message{
		Role:      role,
		Content:   content,
		Type:      msgType,
		CreatedAt: time.Now(),
	})
}

// Messages returns a copy of the transcript.
func (l *ChatLog) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *ChatLog) replace(msgs []Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append([]Message(nil), msgs...)
}

func (l *ChatLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}
