package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/enums"
)

// Job is a client's published piece of work. The state column drives the
// lifecycle engine and is only ever flipped through guarded updates.
type Job struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ClientID    uuid.UUID        `gorm:"column:client_id;type:uuid;not null;index"`
	Title       string           `gorm:"column:title;type:text;not null"`
	Description string           `gorm:"column:description;type:text;not null"`
	Category    *string          `gorm:"column:category;type:text"`
	Budget      *decimal.Decimal `gorm:"column:budget;type:numeric"`
	State       enums.JobState   `gorm:"column:state;type:text;not null;default:'open'"`
	Proposals   []Proposal       `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
