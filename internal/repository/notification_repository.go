package repository

import (
	"context"
	"tp_portal_backend/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

// ListUnread returns the recipient's unread notifications, newest first.
func (r *NotificationRepository) ListUnread(ctx context.Context, recipientID uint) ([]model.Notification, error) {
	var list []model.Notification
	err := r.DB.WithContext(ctx).
		Where("recipient_id = ? AND `read` = ?", recipientID, false).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID uint) error {
	return r.setFlag(ctx, id, recipientID, "read")
}

func (r *NotificationRepository) MarkShown(ctx context.Context, id, recipientID uint) error {
	return r.setFlag(ctx, id, recipientID, "shown")
}

func (r *NotificationRepository) setFlag(ctx context.Context, id, recipientID uint, column string) error {
	var n model.Notification
	err := r.DB.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&n).Error
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Model(&n).Update(column, true).Error
}

