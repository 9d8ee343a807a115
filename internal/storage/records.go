package storage

import (
	"time"

	"waygroup/internal/models"
)

// MessageRecord is the locally cached form of a confirmed chat message.
type MessageRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	RoomID    string    `gorm:"index;not null" json:"room_id"`
	UserID    string    `gorm:"not null" json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

func MessageRecordFromModel(message models.ChatMessage) MessageRecord {
	return MessageRecord{
		ID:        message.ID,
		RoomID:    message.RoomID,
		UserID:    message.UserID,
		UserName:  message.UserName,
		Content:   message.Content,
		Timestamp: message.Timestamp,
	}
}

func (r MessageRecord) ToModel() models.ChatMessage {
	return models.ChatMessage{
		ID:        r.ID,
		RoomID:    r.RoomID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Content:   r.Content,
		Timestamp: r.Timestamp,
		Status:    models.MessageStatusSent,
	}
}

// RoomRecord remembers rooms this client has joined.
type RoomRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	JoinedAt   time.Time `json:"joined_at"`
	LastActive time.Time `json:"last_active"`
}
