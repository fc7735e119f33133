package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column on outbox_events.
type OutboxAggregateType string

const (
	AggregateJob      OutboxAggregateType = "job"
	AggregateProposal OutboxAggregateType = "proposal"
	AggregateContract OutboxAggregateType = "contract"
	AggregateReview   OutboxAggregateType = "review"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateJob,
	AggregateProposal,
	AggregateContract,
	AggregateReview,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column on outbox_events.
type OutboxEventType string

const (
	EventProposalSubmitted OutboxEventType = "proposal_submitted"
	EventProposalAccepted  OutboxEventType = "proposal_accepted"
	EventProposalWithdrawn OutboxEventType = "proposal_withdrawn"
	EventContractCompleted OutboxEventType = "contract_completed"
	EventContractCancelled OutboxEventType = "contract_cancelled"
	EventReviewSubmitted   OutboxEventType = "review_submitted"
	EventJobClosed         OutboxEventType = "job_closed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventProposalSubmitted,
	EventProposalAccepted,
	EventProposalWithdrawn,
	EventContractCompleted,
	EventContractCancelled,
	EventReviewSubmitted,
	EventJobClosed,
}

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
