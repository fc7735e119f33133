package enums

import "fmt"

// ProposalState maps to the state column on proposals.
type ProposalState string

const (
	ProposalStatePending   ProposalState = "pending"
	ProposalStateAccepted  ProposalState = "accepted"
	ProposalStateRejected  ProposalState = "rejected"
	ProposalStateWithdrawn ProposalState = "withdrawn"
)

var validProposalStates = []ProposalState{
	ProposalStatePending,
	ProposalStateAccepted,
	ProposalStateRejected,
	ProposalStateWithdrawn,
}

// String implements fmt.Stringer.
func (p ProposalState) String() string {
	return string(p)
}

// IsValid reports whether the value matches the canonical proposal state enum.
func (p ProposalState) IsValid() bool {
	for _, candidate := range validProposalStates {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProposalState converts the raw string to ProposalState.
func ParseProposalState(value string) (ProposalState, error) {
	for _, candidate := range validProposalStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid proposal state %q", value)
}
