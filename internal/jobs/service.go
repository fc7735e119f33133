package jobs

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
	"github.com/fastworkhq/fastwork-backend/pkg/pagination"
)

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service defines job posting and browsing operations.
type Service interface {
	Post(ctx context.Context, input PostInput) (*models.Job, error)
	Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	Browse(ctx context.Context, params BrowseParams) (*BrowseResult, error)
}

type service struct {
	repo  Repository
	users userDirectory
}

// PostInput carries the fields for a new job listing.
type PostInput struct {
	ClientID    uuid.UUID        `json:"-"`
	Title       string           `json:"title" validate:"required,min=4,max=200"`
	Description string           `json:"description" validate:"required,min=10"`
	Category    *string          `json:"category" validate:"omitempty,max=80"`
	Budget      *decimal.Decimal `json:"budget"`
}

// BrowseParams filters the public job board.
type BrowseParams struct {
	ClientID uuid.UUID
	State    string
	Category string
	Limit    int
	Cursor   string
}

// BrowseResult wraps a page of jobs plus the cursor for the next page.
type BrowseResult struct {
	Items  []models.Job `json:"items"`
	Cursor string       `json:"cursor"`
}

// NewService wires job board dependencies.
func NewService(repo Repository, users userDirectory) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "jobs repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	return &service{repo: repo, users: users}, nil
}

func (s *service) Post(ctx context.Context, input PostInput) (*models.Job, error) {
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if input.Budget != nil && !input.Budget.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget must be positive")
	}

	client, err := s.users.FindByID(ctx, input.ClientID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	if client.Role != enums.RoleClient {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only clients can post jobs")
	}

	job := models.Job{
		ClientID:    input.ClientID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Budget:      input.Budget,
		State:       enums.JobStateOpen,
	}
	if err := s.repo.Create(ctx, &job); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job")
	}
	return &job, nil
}

func (s *service) Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	if jobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
	}
	return job, nil
}

func (s *service) Browse(ctx context.Context, params BrowseParams) (*BrowseResult, error) {
	query := listJobsParams{
		ClientID: params.ClientID,
		Category: params.Category,
		Limit:    params.Limit,
	}
	if params.State != "" {
		state, err := enums.ParseJobState(params.State)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job state filter")
		}
		query.State = state
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list jobs")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &BrowseResult{Items: rows, Cursor: cursor}, nil
}
