package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"waygroup/internal/models"
	"waygroup/internal/storage"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// SaveBatch upserts confirmed messages by id. Pending optimistic messages
// (no server id yet) are skipped.
func (r *MessageRepository) SaveBatch(ctx context.Context, messages []models.ChatMessage) error {
	records := make([]storage.MessageRecord, 0, len(messages))
	for _, message := range messages {
		if message.ID == "" {
			continue
		}
		records = append(records, storage.MessageRecordFromModel(message))
	}

	if len(records) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&records).Error
}

func (r *MessageRepository) FindByRoom(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error) {
	var records []storage.MessageRecord
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	messages := make([]models.ChatMessage, 0, len(records))
	for _, record := range records {
		messages = append(messages, record.ToModel())
	}
	return messages, nil
}

func (r *MessageRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	return r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&storage.MessageRecord{}).Error
}
