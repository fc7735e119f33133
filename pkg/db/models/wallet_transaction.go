package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/enums"
)

// WalletTransaction is one immutable line in a user's wallet ledger.
// Amount is signed, positive for credits and negative for debits, and the
// balance is always derived by summing rows. Rows are never updated or
// deleted.
type WalletTransaction struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Kind       enums.WalletEntryKind `gorm:"column:kind;type:text;not null"`
	Amount     decimal.Decimal       `gorm:"column:amount;type:numeric;not null"`
	Reference  string                `gorm:"column:reference;type:text;not null"`
	ContractID *uuid.UUID            `gorm:"column:contract_id;type:uuid;index"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (w *WalletTransaction) BeforeCreate(_ *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
