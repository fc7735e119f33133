package ratings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
)

// Repository exposes the review reads and profile writes the aggregator needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ScoresForReviewee(ctx context.Context, revieweeID uuid.UUID) ([]int, error)
	UpdateAggregates(ctx context.Context, userID uuid.UUID, updates map[string]any) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a ratings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) ScoresForReviewee(ctx context.Context, revieweeID uuid.UUID) ([]int, error) {
	var scores []int
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("reviewee_id = ?", revieweeID).
		Pluck("score", &scores).Error
	return scores, err
}

func (r *repositoryImpl) UpdateAggregates(ctx context.Context, userID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}
