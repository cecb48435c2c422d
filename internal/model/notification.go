package model

import "time"

type NotificationType string

const (
	NotificationReminder       NotificationType = "reminder"
	NotificationApproval       NotificationType = "approval"
	NotificationApprovalResult NotificationType = "approval_result"
	NotificationOther          NotificationType = "other"
)

// Notification carries two independent flags: Read is set from the
// notification center, Shown once it has been displayed as a popup.
// swagger:model Notification
type Notification struct {
	ID          uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	RecipientID uint             `gorm:"not null;index:idx_notification_recipient" json:"recipientId"`
	Title       string           `gorm:"size:150;not null" json:"title"`
	Message     string           `gorm:"type:text" json:"message"`
	Type        NotificationType `gorm:"size:32;default:'other'" json:"type"`
	Read        bool             `gorm:"default:false;index:idx_notification_recipient" json:"read"`
	Shown       bool             `gorm:"default:false" json:"shown"`
	CreatedAt   time.Time        `gorm:"index" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
