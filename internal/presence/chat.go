package presence

import (
	"sync"

	"waygroup/internal/models"
)

// ChatLog holds the active room's messages with optimistic-send reconciliation
// and unread tracking.
type ChatLog struct {
	mu       sync.Mutex
	messages []models.ChatMessage
	unread   int
	open     bool
}

func NewChatLog() *ChatLog {
	return &ChatLog{}
}

// Add appends a message. When the message carries a clientTempId matching a
// pending entry, that entry is upgraded with the server's id and timestamp
// instead of appending a duplicate.
func (l *ChatLog) Add(message models.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if message.ClientTempID != "" {
		for i := range l.messages {
			if l.messages[i].ClientTempID == message.ClientTempID && l.messages[i].Status == models.MessageStatusPending {
				l.messages[i].ID = message.ID
				if !message.Timestamp.IsZero() {
					l.messages[i].Timestamp = message.Timestamp
				}
				l.messages[i].Status = models.MessageStatusSent
				return
			}
		}
	}

	l.messages = append(l.messages, message)
	if !l.open {
		l.unread++
	}
}

// SetHistory replaces the log with a server-provided history snapshot. Pending
// optimistic entries survive the replacement unless the snapshot already
// confirms them by clientTempId, so a history arriving right after a send (for
// example on reconnect) cannot drop an in-flight message.
func (l *ChatLog) SetHistory(messages []models.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()

	confirmed := make(map[string]bool, len(messages))
	for _, m := range messages {
		if m.ClientTempID != "" {
			confirmed[m.ClientTempID] = true
		}
	}

	var pending []models.ChatMessage
	for _, m := range l.messages {
		if m.Status == models.MessageStatusPending && !confirmed[m.ClientTempID] {
			pending = append(pending, m)
		}
	}

	l.messages = append([]models.ChatMessage(nil), messages...)
	l.messages = append(l.messages, pending...)
}

func (l *ChatLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
	l.unread = 0
}

func (l *ChatLog) Messages() []models.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ChatMessage(nil), l.messages...)
}

func (l *ChatLog) Unread() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unread
}

// SetOpen marks the chat surface open or closed; opening resets the unread
// count.
func (l *ChatLog) SetOpen(open bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = open
	if open {
		l.unread = 0
	}
}
