package lifecycle

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/internal/ratings"
	"github.com/fastworkhq/fastwork-backend/internal/users"
	"github.com/fastworkhq/fastwork-backend/internal/wallet"
	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
	"github.com/fastworkhq/fastwork-backend/pkg/outbox"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupLifecycleTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  role TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  title TEXT,
  bio TEXT,
  skills TEXT,
  location TEXT,
  hourly_rate TEXT,
  rating TEXT,
  review_count INTEGER NOT NULL DEFAULT 0,
  completed_job_count INTEGER NOT NULL DEFAULT 0,
  total_earnings TEXT NOT NULL DEFAULT '0',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT,
  budget TEXT,
  state TEXT NOT NULL DEFAULT 'open',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS proposals (
  id TEXT PRIMARY KEY,
  job_id TEXT NOT NULL,
  freelancer_id TEXT NOT NULL,
  cover_letter TEXT NOT NULL,
  bid_amount TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (job_id, freelancer_id)
);`, `
CREATE TABLE IF NOT EXISTS contracts (
  id TEXT PRIMARY KEY,
  job_id TEXT NOT NULL,
  proposal_id TEXT NOT NULL UNIQUE,
  client_id TEXT NOT NULL,
  freelancer_id TEXT NOT NULL,
  agreed_amount TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'active',
  ended_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE UNIQUE INDEX IF NOT EXISTS ux_contracts_active_job ON contracts (job_id) WHERE state = 'active';`, `
CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  contract_id TEXT NOT NULL,
  reviewer_id TEXT NOT NULL,
  reviewee_id TEXT NOT NULL,
  score INTEGER NOT NULL,
  comment TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (contract_id, reviewer_id)
);`, `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  amount TEXT NOT NULL,
  reference TEXT NOT NULL,
  contract_id TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`}
	for _, schema := range schemas {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

type lifecycleHarness struct {
	db      *gorm.DB
	svc     Service
	wallets wallet.Service
}

func setupLifecycle(t *testing.T) *lifecycleHarness {
	t.Helper()

	db := setupLifecycleTestDB(t)
	runner := sqliteTxRunner{db: db}

	wallets, err := wallet.NewService(wallet.NewRepository(db), runner)
	require.NoError(t, err)
	aggregator, err := ratings.NewService(ratings.NewRepository(db))
	require.NoError(t, err)
	publisher := outbox.NewService(outbox.NewRepository(db), nil)

	svc, err := NewService(NewRepository(db), runner, publisher, wallets, aggregator, users.NewRepository(db), nil)
	require.NoError(t, err)

	return &lifecycleHarness{db: db, svc: svc, wallets: wallets}
}

func (h *lifecycleHarness) seedUser(t *testing.T, role enums.Role) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		DisplayName:  "Test User",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, h.db.Create(&user).Error)
	profile := models.Profile{ID: uuid.New(), UserID: user.ID, TotalEarnings: decimal.Zero}
	require.NoError(t, h.db.Create(&profile).Error)
	return user.ID
}

func (h *lifecycleHarness) seedJob(t *testing.T, clientID uuid.UUID, state enums.JobState) uuid.UUID {
	t.Helper()
	job := models.Job{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       "Build landing page",
		Description: "Responsive marketing site with a contact form",
		State:       state,
	}
	require.NoError(t, h.db.Create(&job).Error)
	return job.ID
}

func (h *lifecycleHarness) submit(t *testing.T, jobID, freelancerID uuid.UUID, bid int64) *models.Proposal {
	t.Helper()
	proposal, err := h.svc.SubmitProposal(context.Background(), SubmitProposalInput{
		JobID:        jobID,
		FreelancerID: freelancerID,
		CoverLetter:  "I have shipped a dozen of these.",
		BidAmount:    decimal.NewFromInt(bid),
	})
	require.NoError(t, err)
	return proposal
}

func (h *lifecycleHarness) jobState(t *testing.T, jobID uuid.UUID) enums.JobState {
	t.Helper()
	var job models.Job
	require.NoError(t, h.db.First(&job, "id = ?", jobID).Error)
	return job.State
}

func (h *lifecycleHarness) proposalState(t *testing.T, proposalID uuid.UUID) enums.ProposalState {
	t.Helper()
	var proposal models.Proposal
	require.NoError(t, h.db.First(&proposal, "id = ?", proposalID).Error)
	return proposal.State
}

func (h *lifecycleHarness) contractState(t *testing.T, contractID uuid.UUID) enums.ContractState {
	t.Helper()
	var contract models.Contract
	require.NoError(t, h.db.First(&contract, "id = ?", contractID).Error)
	return contract.State
}

func (h *lifecycleHarness) eventTypes(t *testing.T) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, h.db.Order("created_at ASC, id ASC").Find(&rows).Error)
	types := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		types = append(types, row.EventType)
	}
	return types
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected typed error, got %v", err)
	assert.Equal(t, code, appErr.Code())
}

func TestSubmitProposal(t *testing.T) {
	h := setupLifecycle(t)
	client := h.seedUser(t, enums.RoleClient)
	freelancer := h.seedUser(t, enums.RoleFreelancer)
	jobID := h.seedJob(t, client, enums.JobStateOpen)

	proposal := h.submit(t, jobID, freelancer, 500)
	assert.Equal(t, enums.ProposalStatePending, proposal.State)
	assert.Contains(t, h.eventTypes(t), enums.EventProposalSubmitted)

	t.Run("duplicate per job", func(t *testing.T) {
		_, err := h.svc.SubmitProposal(context.Background(), SubmitProposalInput{
			JobID:        jobID,
			FreelancerID: freelancer,
			CoverLetter:  "Second attempt on the same job.",
			BidAmount:    decimal.NewFromInt(400),
		})
		requireCode(t, err, pkgerrors.CodeConflict)
	})

	t.Run("clients cannot bid", func(t *testing.T) {
		_, err := h.svc.SubmitProposal(context.Background(), SubmitProposalInput{
			JobID:        jobID,
			FreelancerID: client,
			CoverLetter:  "Bidding on my own job.",
			BidAmount:    decimal.NewFromInt(100),
		})
		requireCode(t, err, pkgerrors.CodeForbidden)
	})

	t.Run("closed job", func(t *testing.T) {
		closedJob := h.seedJob(t, client, enums.JobStateClosed)
		_, err := h.svc.SubmitProposal(context.Background(), SubmitProposalInput{
			JobID:        closedJob,
			FreelancerID: freelancer,
			CoverLetter:  "Too late for this one.",
			BidAmount:    decimal.NewFromInt(100),
		})
		requireCode(t, err, pkgerrors.CodeStateConflict)
	})
}

func TestWithdrawProposal(t *testing.T) {
	h := setupLifecycle(t)
	client := h.seedUser(t, enums.RoleClient)
	freelancer := h.seedUser(t, enums.RoleFreelancer)
	other := h.seedUser(t, enums.RoleFreelancer)
	jobID := h.seedJob(t, client, enums.JobStateOpen)
	proposal := h.submit(t, jobID, freelancer, 500)

	err := h.svc.WithdrawProposal(context.Background(), WithdrawProposalInput{
		ProposalID:  proposal.ID,
		ActorUserID: other,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)

	require.NoError(t, h.svc.WithdrawProposal(context.Background(), WithdrawProposalInput{
		ProposalID:  proposal.ID,
		ActorUserID: freelancer,
	}))
	assert.Equal(t, enums.ProposalStateWithdrawn, h.proposalState(t, proposal.ID))

	err = h.svc.WithdrawProposal(context.Background(), WithdrawProposalInput{
		ProposalID:  proposal.ID,
		ActorUserID: freelancer,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestAcceptProposal(t *testing.T) {
	h := setupLifecycle(t)
	client := h.seedUser(t, enums.RoleClient)
	winner := h.seedUser(t, enums.RoleFreelancer)
	loser := h.seedUser(t, enums.RoleFreelancer)
	jobID := h.seedJob(t, client, enums.JobStateOpen)
	winning := h.submit(t, jobID, winner, 500)
	losing := h.submit(t, jobID, loser, 450)

	t.Run("only the job owner", func(t *testing.T) {
		_, err := h.svc.AcceptProposal(context.Background(), AcceptProposalInput{
			ProposalID:  winning.ID,
			ActorUserID: winner,
		})
		requireCode(t, err, pkgerrors.CodeForbidden)
	})

	contract, err := h.svc.AcceptProposal(context.Background(), AcceptProposalInput{
		ProposalID:  winning.ID,
		ActorUserID: client,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ContractStateActive, contract.State)
	assert.Equal(t, winner, contract.FreelancerID)
	assert.True(t, contract.AgreedAmount.Equal(decimal.NewFromInt(500)))

	assert.Equal(t, enums.JobStateAwarded, h.jobState(t, jobID))
	assert.Equal(t, enums.ProposalStateAccepted, h.proposalState(t, winning.ID))
	assert.Equal(t, enums.ProposalStateRejected, h.proposalState(t, losing.ID))

	t.Run("exactly one winner", func(t *testing.T) {
		_, err := h.svc.AcceptProposal(context.Background(), AcceptProposalInput{
			ProposalID:  losing.ID,
			ActorUserID: client,
		})
		requireCode(t, err, pkgerrors.CodeStateConflict)
	})
}

func TestCompleteContract(t *testing.T) {
	h := setupLifecycle(t)
	ctx := context.Background()
	client := h.seedUser(t, enums.RoleClient)
	freelancer := h.seedUser(t, enums.RoleFreelancer)
	jobID := h.seedJob(t, client, enums.JobStateOpen)
	proposal := h.submit(t, jobID, freelancer, 500)
	contract, err := h.svc.AcceptProposal(ctx, AcceptProposalInput{ProposalID: proposal.ID, ActorUserID: client})
	require.NoError(t, err)

	t.Run("only a party signs off", func(t *testing.T) {
		outsider := h.seedUser(t, enums.RoleClient)
		err := h.svc.CompleteContract(ctx, CompleteContractInput{ContractID: contract.ID, ActorUserID: outsider})
		requireCode(t, err, pkgerrors.CodeForbidden)
	})

	require.NoError(t, h.svc.CompleteContract(ctx, CompleteContractInput{ContractID: contract.ID, ActorUserID: client}))

	assert.Equal(t, enums.ContractStateCompleted, h.contractState(t, contract.ID))
	assert.Equal(t, enums.JobStateCompleted, h.jobState(t, jobID))

	clientBalance, err := h.wallets.Balance(ctx, client)
	require.NoError(t, err)
	assert.True(t, clientBalance.Equal(decimal.NewFromInt(-500)), "client balance %s", clientBalance)
	freelancerBalance, err := h.wallets.Balance(ctx, freelancer)
	require.NoError(t, err)
	assert.True(t, freelancerBalance.Equal(decimal.NewFromInt(500)), "freelancer balance %s", freelancerBalance)

	var profile models.Profile
	require.NoError(t, h.db.First(&profile, "user_id = ?", freelancer).Error)
	assert.Equal(t, 1, profile.CompletedJobCount)
	assert.True(t, profile.TotalEarnings.Equal(decimal.NewFromInt(500)), "total earnings %s", profile.TotalEarnings)

	t.Run("sign off is once only", func(t *testing.T) {
		err := h.svc.CompleteContract(ctx, CompleteContractInput{ContractID: contract.ID, ActorUserID: client})
		requireCode(t, err, pkgerrors.CodeStateConflict)

		// No second settlement happened.
		balance, err := h.wallets.Balance(ctx, freelancer)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(500)))
	})
}

func TestCancelContract(t *testing.T) {
	h := setupLifecycle(t)
	ctx := context.Background()
	client := h.seedUser(t, enums.RoleClient)
	freelancer := h.seedUser(t, enums.RoleFreelancer)
	outsider := h.seedUser(t, enums.RoleFreelancer)
	jobID := h.seedJob(t, client, enums.JobStateOpen)
	proposal := h.submit(t, jobID, freelancer, 500)
	contract, err := h.svc.AcceptProposal(ctx, AcceptProposalInput{ProposalID: proposal.ID, ActorUserID: client})
	require.NoError(t, err)

	err = h.svc.CancelContract(ctx, CancelContractInput{ContractID: contract.ID, ActorUserID: outsider})
	requireCode(t, err, pkgerrors.CodeForbidden)

	require.NoError(t, h.svc.CancelContract(ctx, CancelContractInput{
		ContractID:  contract.ID,
		ActorUserID: freelancer,
		Reason:      "scope changed",
	}))

	assert.Equal(t, enums.ContractStateCancelled, h.contractState(t, contract.ID))
	assert.Equal(t, enums.JobStateOpen, h.jobState(t, jobID), "job returns to the board")

	balance, err := h.wallets.Balance(ctx, freelancer)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "cancellation settles nothing")
}

func TestReawardAfterCancel(t *testing.T) {
	h := setupLifecycle(t)
	ctx := context.Background()
	client := h.seedUser(t, enums.RoleClient)
	first := h.seedUser(t, enums.RoleFreelancer)
	second := h.seedUser(t, enums.RoleFreelancer)
	jobID := h.seedJob(t, client, enums.JobStateOpen)

	firstProposal := h.submit(t, jobID, first, 500)
	firstContract, err := h.svc.AcceptProposal(ctx, AcceptProposalInput{ProposalID: firstProposal.ID, ActorUserID: client})
	require.NoError(t, err)

	require.NoError(t, h.svc.CancelContract(ctx, CancelContractInput{
		ContractID:  firstContract.ID,
		ActorUserID: client,
		Reason:      "freelancer unavailable",
	}))
	assert.Equal(t, enums.ProposalStateRejected, h.proposalState(t, firstProposal.ID),
		"a cancelled contract frees its winning proposal")

	secondProposal := h.submit(t, jobID, second, 450)
	secondContract, err := h.svc.AcceptProposal(ctx, AcceptProposalInput{ProposalID: secondProposal.ID, ActorUserID: client})
	require.NoError(t, err, "a reopened job can be awarded again")

	assert.Equal(t, enums.JobStateAwarded, h.jobState(t, jobID))
	assert.Equal(t, enums.ContractStateCancelled, h.contractState(t, firstContract.ID))
	assert.Equal(t, enums.ContractStateActive, h.contractState(t, secondContract.ID))

	var accepted int64
	require.NoError(t, h.db.Model(&models.Proposal{}).
		Where("job_id = ? AND state = ?", jobID, enums.ProposalStateAccepted).
		Count(&accepted).Error)
	assert.EqualValues(t, 1, accepted, "only the new winner is accepted")
}

func TestCloseJobOpen(t *testing.T) {
	h := setupLifecycle(t)
	ctx := context.Background()
	client := h.seedUser(t, enums.RoleClient)
	freelancer := h.seedUser(t, enums.RoleFreelancer)
	jobID := h.seedJob(t, client, enums.JobStateOpen)
	proposal := h.submit(t, jobID, freelancer, 500)

	require.NoError(t, h.svc.CloseJob(ctx, CloseJobInput{JobID: jobID, ActorUserID: client}))

	assert.Equal(t, enums.JobStateClosed, h.jobState(t, jobID))
	assert.Equal(t, enums.ProposalStateRejected, h.proposalState(t, proposal.ID))
	assert.Contains(t, h.eventTypes(t), enums.EventJobClosed)

	err := h.svc.CloseJob(ctx, CloseJobInput{JobID: jobID, ActorUserID: client})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCloseJobAwarded(t *testing.T) {
	h := setupLifecycle(t)
	ctx := context.Background()
	client := h.seedUser(t, enums.RoleClient)
	freelancer := h.seedUser(t, enums.RoleFreelancer)
	jobID := h.seedJob(t, client, enums.JobStateOpen)
	proposal := h.submit(t, jobID, freelancer, 500)
	contract, err := h.svc.AcceptProposal(ctx, AcceptProposalInput{ProposalID: proposal.ID, ActorUserID: client})
	require.NoError(t, err)

	require.NoError(t, h.svc.CloseJob(ctx, CloseJobInput{JobID: jobID, ActorUserID: client}))

	assert.Equal(t, enums.JobStateClosed, h.jobState(t, jobID), "closed is terminal even from awarded")
	assert.Equal(t, enums.ContractStateCancelled, h.contractState(t, contract.ID))
	assert.Equal(t, enums.ProposalStateRejected, h.proposalState(t, proposal.ID))

	types := h.eventTypes(t)
	assert.Contains(t, types, enums.EventContractCancelled)
	assert.Contains(t, types, enums.EventJobClosed)
}

func TestSubmitReview(t *testing.T) {
	h := setupLifecycle(t)
	ctx := context.Background()
	client := h.seedUser(t, enums.RoleClient)
	freelancer := h.seedUser(t, enums.RoleFreelancer)
	outsider := h.seedUser(t, enums.RoleClient)
	jobID := h.seedJob(t, client, enums.JobStateOpen)
	proposal := h.submit(t, jobID, freelancer, 500)
	contract, err := h.svc.AcceptProposal(ctx, AcceptProposalInput{ProposalID: proposal.ID, ActorUserID: client})
	require.NoError(t, err)

	t.Run("contract must be completed first", func(t *testing.T) {
		_, err := h.svc.SubmitReview(ctx, SubmitReviewInput{ContractID: contract.ID, ReviewerID: client, Score: 5})
		requireCode(t, err, pkgerrors.CodeStateConflict)
	})

	require.NoError(t, h.svc.CompleteContract(ctx, CompleteContractInput{ContractID: contract.ID, ActorUserID: client}))

	t.Run("only contract parties", func(t *testing.T) {
		_, err := h.svc.SubmitReview(ctx, SubmitReviewInput{ContractID: contract.ID, ReviewerID: outsider, Score: 5})
		requireCode(t, err, pkgerrors.CodeForbidden)
	})

	review, err := h.svc.SubmitReview(ctx, SubmitReviewInput{ContractID: contract.ID, ReviewerID: client, Score: 4})
	require.NoError(t, err)
	assert.Equal(t, freelancer, review.RevieweeID)

	var profile models.Profile
	require.NoError(t, h.db.First(&profile, "user_id = ?", freelancer).Error)
	require.NotNil(t, profile.Rating)
	assert.Equal(t, "4", profile.Rating.String())
	assert.Equal(t, 1, profile.ReviewCount)

	t.Run("one review per party", func(t *testing.T) {
		_, err := h.svc.SubmitReview(ctx, SubmitReviewInput{ContractID: contract.ID, ReviewerID: client, Score: 5})
		requireCode(t, err, pkgerrors.CodeConflict)
	})

	t.Run("freelancer reviews the client", func(t *testing.T) {
		review, err := h.svc.SubmitReview(ctx, SubmitReviewInput{ContractID: contract.ID, ReviewerID: freelancer, Score: 5})
		require.NoError(t, err)
		assert.Equal(t, client, review.RevieweeID)
	})

	t.Run("score bounds", func(t *testing.T) {
		_, err := h.svc.SubmitReview(ctx, SubmitReviewInput{ContractID: contract.ID, ReviewerID: client, Score: 6})
		requireCode(t, err, pkgerrors.CodeValidation)
	})
}
