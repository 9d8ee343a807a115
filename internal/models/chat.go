package models

import "time"

type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSent    MessageStatus = "sent"
)

// ChatMessage is one in-room message. ClientTempID carries the optimistic
// identifier assigned before server confirmation.
type ChatMessage struct {
	ID           string        `json:"id"`
	RoomID       string        `json:"roomId"`
	UserID       string        `json:"userId"`
	UserName     string        `json:"userName"`
	Content      string        `json:"content"`
	ClientTempID string        `json:"clientTempId,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	Status       MessageStatus `json:"status,omitempty"`
}
