package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/internal/ratings"
	"github.com/fastworkhq/fastwork-backend/internal/wallet"
	dbpkg "github.com/fastworkhq/fastwork-backend/pkg/db"
	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
	"github.com/fastworkhq/fastwork-backend/pkg/metrics"
	"github.com/fastworkhq/fastwork-backend/pkg/outbox"
	"github.com/fastworkhq/fastwork-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type walletLedger interface {
	Credit(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error)
}

type ratingAggregator interface {
	Recompute(ctx context.Context, tx *gorm.DB, revieweeID uuid.UUID) (*ratings.Summary, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service drives every job, proposal and contract transition. Each compound
// operation runs in a single transaction and queues its outbox events there,
// so observers never see a state change without its event or vice versa.
type Service interface {
	SubmitProposal(ctx context.Context, input SubmitProposalInput) (*models.Proposal, error)
	WithdrawProposal(ctx context.Context, input WithdrawProposalInput) error
	AcceptProposal(ctx context.Context, input AcceptProposalInput) (*models.Contract, error)
	CompleteContract(ctx context.Context, input CompleteContractInput) error
	CancelContract(ctx context.Context, input CancelContractInput) error
	CloseJob(ctx context.Context, input CloseJobInput) error
	SubmitReview(ctx context.Context, input SubmitReviewInput) (*models.Review, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	wallet  walletLedger
	ratings ratingAggregator
	users   userDirectory
	metrics *metrics.LifecycleMetrics
}

// SubmitProposalInput is a freelancer's bid on an open job.
type SubmitProposalInput struct {
	JobID        uuid.UUID       `json:"-"`
	FreelancerID uuid.UUID       `json:"-"`
	CoverLetter  string          `json:"cover_letter" validate:"required,min=10"`
	BidAmount    decimal.Decimal `json:"bid_amount"`
}

// WithdrawProposalInput retracts a pending bid.
type WithdrawProposalInput struct {
	ProposalID  uuid.UUID
	ActorUserID uuid.UUID
}

// AcceptProposalInput awards the job to one proposal.
type AcceptProposalInput struct {
	ProposalID  uuid.UUID
	ActorUserID uuid.UUID
}

// CompleteContractInput signs off finished work and settles payment.
type CompleteContractInput struct {
	ContractID  uuid.UUID
	ActorUserID uuid.UUID
}

// CancelContractInput aborts an active contract and re-opens the job.
type CancelContractInput struct {
	ContractID  uuid.UUID
	ActorUserID uuid.UUID
	Reason      string `json:"reason" validate:"omitempty,max=500"`
}

// CloseJobInput retires a listing. Closing an awarded job cancels its
// active contract in the same transaction.
type CloseJobInput struct {
	JobID       uuid.UUID
	ActorUserID uuid.UUID
}

// SubmitReviewInput rates the other party of a completed contract.
type SubmitReviewInput struct {
	ContractID uuid.UUID `json:"-"`
	ReviewerID uuid.UUID `json:"-"`
	Score      int       `json:"score" validate:"required,min=1,max=5"`
	Comment    *string   `json:"comment" validate:"omitempty,max=4000"`
}

// NewService builds the lifecycle engine with its required collaborators.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, ledger walletLedger, aggregator ratingAggregator, users userDirectory, lifecycleMetrics *metrics.LifecycleMetrics) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lifecycle repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet ledger required")
	}
	if aggregator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rating aggregator required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  publisher,
		wallet:  ledger,
		ratings: aggregator,
		users:   users,
		metrics: lifecycleMetrics,
	}, nil
}

func (s *service) SubmitProposal(ctx context.Context, input SubmitProposalInput) (*models.Proposal, error) {
	if input.JobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}
	if input.FreelancerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.CoverLetter) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cover letter required")
	}
	if !input.BidAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive")
	}

	freelancer, err := s.users.FindByID(ctx, input.FreelancerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "freelancer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load freelancer")
	}
	if freelancer.Role != enums.RoleFreelancer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only freelancers can submit proposals")
	}

	proposal := models.Proposal{
		JobID:        input.JobID,
		FreelancerID: input.FreelancerID,
		CoverLetter:  strings.TrimSpace(input.CoverLetter),
		BidAmount:    input.BidAmount,
		State:        enums.ProposalStatePending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		job, err := repo.FindJob(ctx, input.JobID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
		}
		if job.State != enums.JobStateOpen {
			return s.conflict("submit_proposal", "job is not accepting proposals")
		}

		if err := repo.CreateProposal(ctx, &proposal); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "proposal already submitted for this job")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create proposal")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventProposalSubmitted,
			AggregateType: enums.AggregateProposal,
			AggregateID:   proposal.ID,
			Actor:         buildActor(input.FreelancerID, enums.RoleFreelancer),
			Data: payloads.ProposalSubmittedEvent{
				ProposalID:   proposal.ID,
				JobID:        job.ID,
				JobTitle:     job.Title,
				ClientID:     job.ClientID,
				FreelancerID: input.FreelancerID,
				BidAmount:    input.BidAmount,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition("submit_proposal")
	return &proposal, nil
}

func (s *service) WithdrawProposal(ctx context.Context, input WithdrawProposalInput) error {
	if input.ProposalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "proposal id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		proposal, err := repo.FindProposal(ctx, input.ProposalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "proposal not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load proposal")
		}
		if proposal.FreelancerID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "proposal belongs to another freelancer")
		}

		won, err := repo.UpdateProposalStateIf(ctx, proposal.ID, enums.ProposalStatePending, enums.ProposalStateWithdrawn)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "withdraw proposal")
		}
		if !won {
			return s.conflict("withdraw_proposal", "only pending proposals can be withdrawn")
		}

		job, err := repo.FindJob(ctx, proposal.JobID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventProposalWithdrawn,
			AggregateType: enums.AggregateProposal,
			AggregateID:   proposal.ID,
			Actor:         buildActor(input.ActorUserID, enums.RoleFreelancer),
			Data: payloads.ProposalWithdrawnEvent{
				ProposalID:   proposal.ID,
				JobID:        job.ID,
				JobTitle:     job.Title,
				ClientID:     job.ClientID,
				FreelancerID: proposal.FreelancerID,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	s.metrics.IncTransition("withdraw_proposal")
	return nil
}

func (s *service) AcceptProposal(ctx context.Context, input AcceptProposalInput) (*models.Contract, error) {
	if input.ProposalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proposal id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var contract models.Contract
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		proposal, err := repo.FindProposal(ctx, input.ProposalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "proposal not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load proposal")
		}
		job, err := repo.FindJob(ctx, proposal.JobID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
		}
		if job.ClientID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the job owner can accept proposals")
		}
		if proposal.State != enums.ProposalStatePending {
			return s.conflict("accept_proposal", "proposal is not pending")
		}

		// The job flip is the serialization point: of any number of
		// concurrent accepts, exactly one moves open -> awarded.
		won, err := repo.UpdateJobStateIf(ctx, job.ID, enums.JobStateOpen, enums.JobStateAwarded)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "award job")
		}
		if !won {
			return s.conflict("accept_proposal", "job is no longer open")
		}

		won, err = repo.UpdateProposalStateIf(ctx, proposal.ID, enums.ProposalStatePending, enums.ProposalStateAccepted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept proposal")
		}
		if !won {
			return s.conflict("accept_proposal", "proposal is not pending")
		}

		rejected, err := repo.PendingProposals(ctx, job.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load competing proposals")
		}
		if _, err := repo.RejectPendingProposals(ctx, job.ID, proposal.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject competing proposals")
		}

		contract = models.Contract{
			JobID:        job.ID,
			ProposalID:   proposal.ID,
			ClientID:     job.ClientID,
			FreelancerID: proposal.FreelancerID,
			AgreedAmount: proposal.BidAmount,
			State:        enums.ContractStateActive,
		}
		if err := repo.CreateContract(ctx, &contract); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return s.conflict("accept_proposal", "job already has a contract")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contract")
		}

		refs := make([]payloads.RejectedProposalRef, 0, len(rejected))
		for _, loser := range rejected {
			refs = append(refs, payloads.RejectedProposalRef{
				ProposalID:   loser.ID,
				FreelancerID: loser.FreelancerID,
			})
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventProposalAccepted,
			AggregateType: enums.AggregateProposal,
			AggregateID:   proposal.ID,
			Actor:         buildActor(input.ActorUserID, enums.RoleClient),
			Data: payloads.ProposalAcceptedEvent{
				ProposalID:        proposal.ID,
				JobID:             job.ID,
				JobTitle:          job.Title,
				ContractID:        contract.ID,
				ClientID:          job.ClientID,
				FreelancerID:      proposal.FreelancerID,
				AgreedAmount:      proposal.BidAmount,
				RejectedProposals: refs,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition("accept_proposal")
	return &contract, nil
}

func (s *service) CompleteContract(ctx context.Context, input CompleteContractInput) error {
	if input.ContractID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		contract, err := repo.FindContract(ctx, input.ContractID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
		}
		if contract.ClientID != input.ActorUserID && contract.FreelancerID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only a contract party can sign off a contract")
		}

		now := time.Now().UTC()
		won, err := repo.UpdateContractStateIf(ctx, contract.ID, enums.ContractStateActive, enums.ContractStateCompleted, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete contract")
		}
		if !won {
			return s.conflict("complete_contract", "contract is not active")
		}
		if _, err := repo.UpdateJobStateIf(ctx, contract.JobID, enums.JobStateAwarded, enums.JobStateCompleted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete job")
		}

		// Settlement: the agreed amount moves client -> freelancer as two
		// ledger entries referencing the contract.
		if _, err := s.wallet.Debit(ctx, tx, wallet.EntryInput{
			UserID:     contract.ClientID,
			Amount:     contract.AgreedAmount,
			Reference:  "contract settlement",
			ContractID: &contract.ID,
		}); err != nil {
			return err
		}
		if _, err := s.wallet.Credit(ctx, tx, wallet.EntryInput{
			UserID:     contract.FreelancerID,
			Amount:     contract.AgreedAmount,
			Reference:  "contract settlement",
			ContractID: &contract.ID,
		}); err != nil {
			return err
		}
		if err := repo.RecordFreelancerEarnings(ctx, contract.FreelancerID, contract.AgreedAmount.String()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record freelancer earnings")
		}

		job, err := repo.FindJob(ctx, contract.JobID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventContractCompleted,
			AggregateType: enums.AggregateContract,
			AggregateID:   contract.ID,
			Actor:         buildActor(input.ActorUserID, actorRole(contract, input.ActorUserID)),
			Data: payloads.ContractCompletedEvent{
				ContractID:   contract.ID,
				JobID:        contract.JobID,
				JobTitle:     job.Title,
				ClientID:     contract.ClientID,
				FreelancerID: contract.FreelancerID,
				AgreedAmount: contract.AgreedAmount,
				CompletedAt:  now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	s.metrics.IncTransition("complete_contract")
	return nil
}

func (s *service) CancelContract(ctx context.Context, input CancelContractInput) error {
	if input.ContractID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		contract, err := repo.FindContract(ctx, input.ContractID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
		}
		if contract.ClientID != input.ActorUserID && contract.FreelancerID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only contract parties can cancel")
		}

		now := time.Now().UTC()
		won, err := repo.UpdateContractStateIf(ctx, contract.ID, enums.ContractStateActive, enums.ContractStateCancelled, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel contract")
		}
		if !won {
			return s.conflict("cancel_contract", "contract is not active")
		}

		// The job returns to the board so the client can award it again,
		// and the winning proposal leaves accepted so the next accept is
		// still the only accepted proposal on the job.
		if _, err := repo.UpdateJobStateIf(ctx, contract.JobID, enums.JobStateAwarded, enums.JobStateOpen); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen job")
		}
		if _, err := repo.UpdateProposalStateIf(ctx, contract.ProposalID, enums.ProposalStateAccepted, enums.ProposalStateRejected); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retire accepted proposal")
		}

		job, err := repo.FindJob(ctx, contract.JobID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventContractCancelled,
			AggregateType: enums.AggregateContract,
			AggregateID:   contract.ID,
			Actor:         buildActor(input.ActorUserID, actorRole(contract, input.ActorUserID)),
			Data: payloads.ContractCancelledEvent{
				ContractID:   contract.ID,
				JobID:        contract.JobID,
				JobTitle:     job.Title,
				ClientID:     contract.ClientID,
				FreelancerID: contract.FreelancerID,
				CancelledBy:  input.ActorUserID,
				Reason:       strings.TrimSpace(input.Reason),
				CancelledAt:  now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	s.metrics.IncTransition("cancel_contract")
	return nil
}

func (s *service) CloseJob(ctx context.Context, input CloseJobInput) error {
	if input.JobID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		job, err := repo.FindJob(ctx, input.JobID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
		}
		if job.ClientID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the job owner can close it")
		}
		if job.State.IsTerminal() {
			return s.conflict("close_job", "job is already finished")
		}

		closedEvent := payloads.JobClosedEvent{
			JobID:    job.ID,
			JobTitle: job.Title,
			ClientID: job.ClientID,
		}

		switch job.State {
		case enums.JobStateOpen:
			pending, err := repo.PendingProposals(ctx, job.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending proposals")
			}
			won, err := repo.UpdateJobStateIf(ctx, job.ID, enums.JobStateOpen, enums.JobStateClosed)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close job")
			}
			if !won {
				return s.conflict("close_job", "job changed state concurrently")
			}
			if _, err := repo.RejectPendingProposals(ctx, job.ID, uuid.Nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject pending proposals")
			}
			for _, proposal := range pending {
				closedEvent.PendingFreelancers = append(closedEvent.PendingFreelancers, proposal.FreelancerID)
			}

		case enums.JobStateAwarded:
			// Closing an awarded job cancels the work in flight; the job
			// does not return to the board because closed is terminal.
			contract, err := repo.FindActiveContractByJob(ctx, job.ID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return s.conflict("close_job", "awarded job has no active contract")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active contract")
			}
			now := time.Now().UTC()
			won, err := repo.UpdateContractStateIf(ctx, contract.ID, enums.ContractStateActive, enums.ContractStateCancelled, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel contract")
			}
			if !won {
				return s.conflict("close_job", "contract changed state concurrently")
			}
			if _, err := repo.UpdateProposalStateIf(ctx, contract.ProposalID, enums.ProposalStateAccepted, enums.ProposalStateRejected); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retire accepted proposal")
			}
			won, err = repo.UpdateJobStateIf(ctx, job.ID, enums.JobStateAwarded, enums.JobStateClosed)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close job")
			}
			if !won {
				return s.conflict("close_job", "job changed state concurrently")
			}
			closedEvent.CancelledContractID = &contract.ID
			closedEvent.FreelancerID = &contract.FreelancerID

			cancelEvent := outbox.DomainEvent{
				EventType:     enums.EventContractCancelled,
				AggregateType: enums.AggregateContract,
				AggregateID:   contract.ID,
				Actor:         buildActor(input.ActorUserID, enums.RoleClient),
				Data: payloads.ContractCancelledEvent{
					ContractID:   contract.ID,
					JobID:        job.ID,
					JobTitle:     job.Title,
					ClientID:     contract.ClientID,
					FreelancerID: contract.FreelancerID,
					CancelledBy:  input.ActorUserID,
					Reason:       "job closed",
					CancelledAt:  now,
				},
			}
			if err := s.outbox.Emit(ctx, tx, cancelEvent); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventJobClosed,
			AggregateType: enums.AggregateJob,
			AggregateID:   job.ID,
			Actor:         buildActor(input.ActorUserID, enums.RoleClient),
			Data:          closedEvent,
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	s.metrics.IncTransition("close_job")
	return nil
}

func (s *service) SubmitReview(ctx context.Context, input SubmitReviewInput) (*models.Review, error) {
	if input.ContractID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}
	if input.ReviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Score < 1 || input.Score > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "score must be between 1 and 5")
	}

	var review models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		contract, err := repo.FindContract(ctx, input.ContractID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
		}

		var revieweeID uuid.UUID
		switch input.ReviewerID {
		case contract.ClientID:
			revieweeID = contract.FreelancerID
		case contract.FreelancerID:
			revieweeID = contract.ClientID
		default:
			return pkgerrors.New(pkgerrors.CodeForbidden, "only contract parties can review")
		}
		if contract.State != enums.ContractStateCompleted {
			return s.conflict("submit_review", "contract is not completed")
		}

		review = models.Review{
			ContractID: contract.ID,
			ReviewerID: input.ReviewerID,
			RevieweeID: revieweeID,
			Score:      input.Score,
			Comment:    input.Comment,
		}
		if err := repo.CreateReview(ctx, &review); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "contract already reviewed by this party")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}

		// The aggregate updates in the same transaction as the review row.
		if _, err := s.ratings.Recompute(ctx, tx, revieweeID); err != nil {
			return err
		}

		job, err := repo.FindJob(ctx, contract.JobID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventReviewSubmitted,
			AggregateType: enums.AggregateReview,
			AggregateID:   review.ID,
			Actor:         buildActor(input.ReviewerID, actorRole(contract, input.ReviewerID)),
			Data: payloads.ReviewSubmittedEvent{
				ReviewID:   review.ID,
				ContractID: contract.ID,
				JobTitle:   job.Title,
				ReviewerID: input.ReviewerID,
				RevieweeID: revieweeID,
				Score:      input.Score,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition("submit_review")
	return &review, nil
}

func (s *service) conflict(operation, message string) error {
	s.metrics.IncConflict(operation)
	return pkgerrors.New(pkgerrors.CodeStateConflict, message)
}

func buildActor(userID uuid.UUID, role enums.Role) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: role.String()}
}

func actorRole(contract *models.Contract, userID uuid.UUID) enums.Role {
	if contract != nil && contract.ClientID == userID {
		return enums.RoleClient
	}
	return enums.RoleFreelancer
}
