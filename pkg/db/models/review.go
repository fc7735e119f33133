package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is one party's verdict on a completed contract. The composite
// unique index allows each side to review once, so a contract holds at
// most two rows.
type Review struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ContractID uuid.UUID  `gorm:"column:contract_id;type:uuid;not null;uniqueIndex:ux_reviews_contract_reviewer"`
	ReviewerID uuid.UUID  `gorm:"column:reviewer_id;type:uuid;not null;uniqueIndex:ux_reviews_contract_reviewer"`
	RevieweeID uuid.UUID  `gorm:"column:reviewee_id;type:uuid;not null;index"`
	Score      int        `gorm:"column:score;not null"`
	Comment    *string    `gorm:"column:comment;type:text"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (r *Review) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
