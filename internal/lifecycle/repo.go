package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
)

// Repository exposes the guarded reads and writes the lifecycle engine
// performs. State flips are compare-and-swap updates filtered on the
// expected current state; the returned bool reports whether this caller
// won the flip. Concurrent transitions on the same row therefore resolve
// to exactly one winner without relying on row locks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	FindProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	FindContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	FindActiveContractByJob(ctx context.Context, jobID uuid.UUID) (*models.Contract, error)
	PendingProposals(ctx context.Context, jobID uuid.UUID) ([]models.Proposal, error)

	CreateProposal(ctx context.Context, proposal *models.Proposal) error
	CreateContract(ctx context.Context, contract *models.Contract) error
	CreateReview(ctx context.Context, review *models.Review) error

	UpdateJobStateIf(ctx context.Context, jobID uuid.UUID, from, to enums.JobState) (bool, error)
	UpdateProposalStateIf(ctx context.Context, proposalID uuid.UUID, from, to enums.ProposalState) (bool, error)
	UpdateContractStateIf(ctx context.Context, contractID uuid.UUID, from, to enums.ContractState, endedAt time.Time) (bool, error)
	RejectPendingProposals(ctx context.Context, jobID uuid.UUID, exceptID uuid.UUID) (int64, error)

	RecordFreelancerEarnings(ctx context.Context, freelancerID uuid.UUID, amount string) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a lifecycle repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repositoryImpl) FindProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := r.db.WithContext(ctx).First(&proposal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *repositoryImpl) FindContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repositoryImpl) FindActiveContractByJob(ctx context.Context, jobID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		First(&contract, "job_id = ? AND state = ?", jobID, enums.ContractStateActive).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repositoryImpl) PendingProposals(ctx context.Context, jobID uuid.UUID) ([]models.Proposal, error) {
	var rows []models.Proposal
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND state = ?", jobID, enums.ProposalStatePending).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *repositoryImpl) CreateContract(ctx context.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *repositoryImpl) CreateReview(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repositoryImpl) UpdateJobStateIf(ctx context.Context, jobID uuid.UUID, from, to enums.JobState) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ? AND state = ?", jobID, from).
		Updates(map[string]any{"state": to})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) UpdateProposalStateIf(ctx context.Context, proposalID uuid.UUID, from, to enums.ProposalState) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND state = ?", proposalID, from).
		Updates(map[string]any{"state": to})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) UpdateContractStateIf(ctx context.Context, contractID uuid.UUID, from, to enums.ContractState, endedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("id = ? AND state = ?", contractID, from).
		Updates(map[string]any{"state": to, "ended_at": endedAt})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) RejectPendingProposals(ctx context.Context, jobID uuid.UUID, exceptID uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("job_id = ? AND state = ?", jobID, enums.ProposalStatePending)
	if exceptID != uuid.Nil {
		query = query.Where("id <> ?", exceptID)
	}
	result := query.Updates(map[string]any{"state": enums.ProposalStateRejected})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) RecordFreelancerEarnings(ctx context.Context, freelancerID uuid.UUID, amount string) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", freelancerID).
		Updates(map[string]any{
			"completed_job_count": gorm.Expr("completed_job_count + 1"),
			"total_earnings":      gorm.Expr("total_earnings + ?", amount),
		}).Error
}
