package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/config"
	dbpkg "github.com/fastworkhq/fastwork-backend/pkg/db"
	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
	"github.com/fastworkhq/fastwork-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines account registration and profile operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Account, error)
	Get(ctx context.Context, userID uuid.UUID) (*Account, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*Account, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	password config.PasswordConfig
}

// RegisterInput carries the fields required to open an account.
type RegisterInput struct {
	Email       string     `json:"email" validate:"required,email"`
	Password    string     `json:"password" validate:"required,min=8"`
	DisplayName string     `json:"display_name" validate:"required,min=2,max=120"`
	Role        enums.Role `json:"role" validate:"required"`
}

// UpdateProfileInput carries optional profile fields; nil leaves a field untouched.
type UpdateProfileInput struct {
	Title      *string          `json:"title" validate:"omitempty,max=160"`
	Bio        *string          `json:"bio" validate:"omitempty,max=4000"`
	Skills     *string          `json:"skills" validate:"omitempty,max=1000"`
	Location   *string          `json:"location" validate:"omitempty,max=160"`
	HourlyRate *decimal.Decimal `json:"hourly_rate"`
}

// Account is the combined user plus profile view returned by the service.
type Account struct {
	User    models.User    `json:"user"`
	Profile models.Profile `json:"profile"`
}

// NewService wires user account dependencies.
func NewService(repo Repository, tx txRunner, password config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{repo: repo, tx: tx, password: password}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be client or freelancer")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Role:         input.Role,
		IsActive:     true,
	}
	profile := models.Profile{
		TotalEarnings: decimal.Zero,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, &user); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		profile.UserID = user.ID
		if err := repo.CreateProfile(ctx, &profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Account{User: user, Profile: profile}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Account, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	profile, err := s.repo.FindProfileByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return &Account{User: *user, Profile: *profile}, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*Account, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	updates := map[string]any{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Bio != nil {
		updates["bio"] = *input.Bio
	}
	if input.Skills != nil {
		updates["skills"] = *input.Skills
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.HourlyRate != nil {
		if input.HourlyRate.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "hourly rate cannot be negative")
		}
		updates["hourly_rate"] = *input.HourlyRate
	}
	if len(updates) == 0 {
		return s.Get(ctx, userID)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindProfileByUserID(ctx, userID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
		}
		if err := repo.UpdateProfile(ctx, userID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, userID)
}
