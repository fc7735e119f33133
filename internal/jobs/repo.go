package jobs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	"github.com/fastworkhq/fastwork-backend/pkg/pagination"
)

// Repository exposes persistence helpers for job listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, params listJobsParams) ([]models.Job, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a jobs repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listJobsParams struct {
	ClientID uuid.UUID
	State    enums.JobState
	Category string
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listJobsParams) ([]models.Job, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Job{})
	if params.ClientID != uuid.Nil {
		query = query.Where("client_id = ?", params.ClientID)
	}
	if params.State != "" {
		query = query.Where("state = ?", params.State)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Job
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
