package ratings

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
)

// Service recomputes a user's rating aggregates from the full review set.
// It always runs inside the caller's transaction so the aggregate can never
// drift from the reviews that commit with it.
type Service interface {
	Recompute(ctx context.Context, tx *gorm.DB, revieweeID uuid.UUID) (*Summary, error)
}

type service struct {
	repo Repository
}

// Summary is the recomputed aggregate written back to the profile.
type Summary struct {
	Rating      *decimal.Decimal
	ReviewCount int
}

// NewService wires the rating aggregator.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ratings repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Recompute(ctx context.Context, tx *gorm.DB, revieweeID uuid.UUID) (*Summary, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if revieweeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviewee id required")
	}

	repo := s.repo.WithTx(tx)
	scores, err := repo.ScoresForReviewee(ctx, revieweeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review scores")
	}

	summary := Summary{ReviewCount: len(scores)}
	updates := map[string]any{"review_count": len(scores)}
	if len(scores) == 0 {
		updates["rating"] = nil
	} else {
		total := decimal.Zero
		for _, score := range scores {
			total = total.Add(decimal.NewFromInt(int64(score)))
		}
		mean := total.Div(decimal.NewFromInt(int64(len(scores)))).Round(1)
		summary.Rating = &mean
		updates["rating"] = mean
	}

	if err := repo.UpdateAggregates(ctx, revieweeID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rating aggregates")
	}
	return &summary, nil
}
