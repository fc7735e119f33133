package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/enums"
)

// Proposal is a freelancer's bid on an open job. The composite unique index
// enforces at most one proposal per freelancer per job regardless of state.
type Proposal struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	JobID        uuid.UUID           `gorm:"column:job_id;type:uuid;not null;uniqueIndex:ux_proposals_job_freelancer"`
	FreelancerID uuid.UUID           `gorm:"column:freelancer_id;type:uuid;not null;uniqueIndex:ux_proposals_job_freelancer"`
	CoverLetter  string              `gorm:"column:cover_letter;type:text;not null"`
	BidAmount    decimal.Decimal     `gorm:"column:bid_amount;type:numeric;not null"`
	State        enums.ProposalState `gorm:"column:state;type:text;not null;default:'pending'"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (p *Proposal) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
