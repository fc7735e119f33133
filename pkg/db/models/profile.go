package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Profile carries the public face of a user plus the aggregates the review
// pipeline maintains. Rating is nil until the first review lands so the API
// can distinguish "unrated" from "rated zero".
type Profile struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Title             *string          `gorm:"column:title;type:text"`
	Bio               *string          `gorm:"column:bio;type:text"`
	Skills            *string          `gorm:"column:skills;type:text"`
	Location          *string          `gorm:"column:location;type:text"`
	HourlyRate        *decimal.Decimal `gorm:"column:hourly_rate;type:numeric"`
	Rating            *decimal.Decimal `gorm:"column:rating;type:numeric"`
	ReviewCount       int              `gorm:"column:review_count;not null;default:0"`
	CompletedJobCount int              `gorm:"column:completed_job_count;not null;default:0"`
	TotalEarnings     decimal.Decimal  `gorm:"column:total_earnings;type:numeric;not null;default:0"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (p *Profile) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
