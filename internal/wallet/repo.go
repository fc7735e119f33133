package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/pagination"
)

// Repository exposes persistence helpers for the append-only wallet ledger.
// There are deliberately no update or delete methods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.WalletTransaction) error
	Amounts(ctx context.Context, userID uuid.UUID) ([]string, error)
	List(ctx context.Context, params listEntriesParams) ([]models.WalletTransaction, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listEntriesParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Append(ctx context.Context, entry *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Amounts returns every signed amount for the user as raw strings. Summation
// happens in the service with exact decimal arithmetic rather than in SQL,
// which keeps the result identical across Postgres and the sqlite test
// harness.
func (r *repositoryImpl) Amounts(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var amounts []string
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("user_id = ?", userID).
		Pluck("amount", &amounts).Error
	return amounts, err
}

func (r *repositoryImpl) List(ctx context.Context, params listEntriesParams) ([]models.WalletTransaction, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("user_id = ?", params.UserID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.WalletTransaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}
