package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/enums"
)

// Notification is one row in a user's in-app inbox. PayloadRef points at
// the aggregate the notification is about, so clients can deep link.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	RecipientID uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index"`
	Kind        enums.NotificationKind `gorm:"column:kind;type:text;not null"`
	Title       string                 `gorm:"column:title;type:text;not null"`
	Message     string                 `gorm:"column:message;type:text;not null"`
	PayloadRef  *uuid.UUID             `gorm:"column:payload_ref;type:uuid"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
