package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/enums"
)

// Contract binds a client and a freelancer to the accepted proposal's
// terms. proposal_id is unique, and a partial index in the schema keeps
// job_id unique among active contracts only, so a job cancelled out of a
// contract can be awarded again while never carrying two live contracts.
type Contract struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	JobID        uuid.UUID           `gorm:"column:job_id;type:uuid;not null;index"`
	ProposalID   uuid.UUID           `gorm:"column:proposal_id;type:uuid;not null;uniqueIndex"`
	ClientID     uuid.UUID           `gorm:"column:client_id;type:uuid;not null;index"`
	FreelancerID uuid.UUID           `gorm:"column:freelancer_id;type:uuid;not null;index"`
	AgreedAmount decimal.Decimal     `gorm:"column:agreed_amount;type:numeric;not null"`
	State        enums.ContractState `gorm:"column:state;type:text;not null;default:'active'"`
	EndedAt      *time.Time          `gorm:"column:ended_at"`
	Reviews      []Review            `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *Contract) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
