package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProposalSubmittedEvent signals a new bid on an open job.
type ProposalSubmittedEvent struct {
	ProposalID   uuid.UUID       `json:"proposal_id"`
	JobID        uuid.UUID       `json:"job_id"`
	JobTitle     string          `json:"job_title"`
	ClientID     uuid.UUID       `json:"client_id"`
	FreelancerID uuid.UUID       `json:"freelancer_id"`
	BidAmount    decimal.Decimal `json:"bid_amount"`
}

// ProposalAcceptedEvent is emitted when the client picks a winner. The
// rejected siblings ride along so the dispatcher can notify every loser
// from a single event.
type ProposalAcceptedEvent struct {
	ProposalID        uuid.UUID             `json:"proposal_id"`
	JobID             uuid.UUID             `json:"job_id"`
	JobTitle          string                `json:"job_title"`
	ContractID        uuid.UUID             `json:"contract_id"`
	ClientID          uuid.UUID             `json:"client_id"`
	FreelancerID      uuid.UUID             `json:"freelancer_id"`
	AgreedAmount      decimal.Decimal       `json:"agreed_amount"`
	RejectedProposals []RejectedProposalRef `json:"rejected_proposals,omitempty"`
}

// RejectedProposalRef points at a sibling proposal rejected by an accept.
type RejectedProposalRef struct {
	ProposalID   uuid.UUID `json:"proposal_id"`
	FreelancerID uuid.UUID `json:"freelancer_id"`
}

// ProposalWithdrawnEvent is emitted when a freelancer pulls a pending bid.
type ProposalWithdrawnEvent struct {
	ProposalID   uuid.UUID `json:"proposal_id"`
	JobID        uuid.UUID `json:"job_id"`
	JobTitle     string    `json:"job_title"`
	ClientID     uuid.UUID `json:"client_id"`
	FreelancerID uuid.UUID `json:"freelancer_id"`
}

// ContractCompletedEvent surfaces the settlement fields when work is signed off.
type ContractCompletedEvent struct {
	ContractID   uuid.UUID       `json:"contract_id"`
	JobID        uuid.UUID       `json:"job_id"`
	JobTitle     string          `json:"job_title"`
	ClientID     uuid.UUID       `json:"client_id"`
	FreelancerID uuid.UUID       `json:"freelancer_id"`
	AgreedAmount decimal.Decimal `json:"agreed_amount"`
	CompletedAt  time.Time       `json:"completed_at"`
}

// ContractCancelledEvent is emitted when either party aborts an active contract.
type ContractCancelledEvent struct {
	ContractID   uuid.UUID `json:"contract_id"`
	JobID        uuid.UUID `json:"job_id"`
	JobTitle     string    `json:"job_title"`
	ClientID     uuid.UUID `json:"client_id"`
	FreelancerID uuid.UUID `json:"freelancer_id"`
	CancelledBy  uuid.UUID `json:"cancelled_by"`
	Reason       string    `json:"reason,omitempty"`
	CancelledAt  time.Time `json:"cancelled_at"`
}

// ReviewSubmittedEvent tells the dispatcher to alert the reviewee.
type ReviewSubmittedEvent struct {
	ReviewID   uuid.UUID `json:"review_id"`
	ContractID uuid.UUID `json:"contract_id"`
	JobTitle   string    `json:"job_title"`
	ReviewerID uuid.UUID `json:"reviewer_id"`
	RevieweeID uuid.UUID `json:"reviewee_id"`
	Score      int       `json:"score"`
}

// JobClosedEvent is emitted when a client retires a job listing.
type JobClosedEvent struct {
	JobID               uuid.UUID   `json:"job_id"`
	JobTitle            string      `json:"job_title"`
	ClientID            uuid.UUID   `json:"client_id"`
	PendingFreelancers  []uuid.UUID `json:"pending_freelancers,omitempty"`
	CancelledContractID *uuid.UUID  `json:"cancelled_contract_id,omitempty"`
	FreelancerID        *uuid.UUID  `json:"freelancer_id,omitempty"`
}
