package wallet

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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines wallet ledger operations. The transaction log is the only
// source of truth; balances are always derived from it.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Deposit(ctx context.Context, input DepositInput) (*models.WalletTransaction, error)
	Withdraw(ctx context.Context, input WithdrawInput) (*models.WalletTransaction, error)
	Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// ListParams configures pagination for the transaction history.
type ListParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}

// ListResult wraps returned entries and the cursor for the next page.
type ListResult struct {
	Items  []models.WalletTransaction `json:"items"`
	Cursor string                     `json:"cursor"`
}

// DepositInput adds external funds to a wallet.
type DepositInput struct {
	UserID    uuid.UUID       `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// WithdrawInput removes funds, refusing to overdraw the wallet.
type WithdrawInput struct {
	UserID    uuid.UUID       `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// EntryInput is used by other services appending settlement entries inside
// their own transactions.
type EntryInput struct {
	UserID     uuid.UUID
	Amount     decimal.Decimal
	Reference  string
	ContractID *uuid.UUID
}

// NewService wires wallet dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.balance(ctx, s.repo, userID)
}

func (s *service) balance(ctx context.Context, repo Repository, userID uuid.UUID) (decimal.Decimal, error) {
	amounts, err := repo.Amounts(ctx, userID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet entries")
	}
	total := decimal.Zero
	for _, raw := range amounts {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt wallet amount")
		}
		total = total.Add(amount)
	}
	return total, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listEntriesParams{
		UserID: params.UserID,
		Limit:  params.Limit,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet entries")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Deposit(ctx context.Context, input DepositInput) (*models.WalletTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}

	var entry *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = s.Credit(ctx, tx, EntryInput{
			UserID:    input.UserID,
			Amount:    input.Amount,
			Reference: defaultReference(input.Reference, "deposit"),
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*models.WalletTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}

	var entry *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		balance, err := s.balance(ctx, repo, input.UserID)
		if err != nil {
			return err
		}
		if balance.LessThan(input.Amount) {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient funds")
		}
		var txErr error
		entry, txErr = s.Debit(ctx, tx, EntryInput{
			UserID:    input.UserID,
			Amount:    input.Amount,
			Reference: defaultReference(input.Reference, "withdrawal"),
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Credit appends a positive entry inside the caller's transaction.
func (s *service) Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	return s.append(ctx, tx, input, enums.WalletEntryCredit)
}

// Debit appends a negative entry inside the caller's transaction. The caller
// decides whether overdrafts are allowed; contract settlement debits the
// client unconditionally.
func (s *service) Debit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	return s.append(ctx, tx, input, enums.WalletEntryDebit)
}

func (s *service) append(ctx context.Context, tx *gorm.DB, input EntryInput, kind enums.WalletEntryKind) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry amount must be positive")
	}

	amount := input.Amount
	if kind == enums.WalletEntryDebit {
		amount = amount.Neg()
	}
	entry := models.WalletTransaction{
		UserID:     input.UserID,
		Kind:       kind,
		Amount:     amount,
		Reference:  defaultReference(input.Reference, string(kind)),
		ContractID: input.ContractID,
	}
	if err := s.repo.WithTx(tx).Append(ctx, &entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append wallet entry")
	}
	return &entry, nil
}

func defaultReference(reference, fallback string) string {
	if trimmed := strings.TrimSpace(reference); trimmed != "" {
		return trimmed
	}
	return fallback
}
