package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"waygroup/internal/storage"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) CreateOrUpdate(ctx context.Context, room *storage.RoomRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing storage.RoomRecord
		result := tx.Where("id = ?", room.ID).First(&existing)

		if result.Error == nil {
			return tx.Model(&storage.RoomRecord{}).
				Where("id = ?", room.ID).
				Updates(map[string]interface{}{
					"name":        room.Name,
					"last_active": room.LastActive,
				}).Error
		} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tx.Create(room).Error
		} else {
			return result.Error
		}
	})
}

func (r *RoomRepository) FindByID(ctx context.Context, roomID string) (*storage.RoomRecord, error) {
	var room storage.RoomRecord
	err := r.db.WithContext(ctx).Where("id = ?", roomID).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) TouchLastActive(ctx context.Context, roomID string) error {
	return r.db.WithContext(ctx).Model(&storage.RoomRecord{}).
		Where("id = ?", roomID).
		Update("last_active", time.Now()).Error
}
