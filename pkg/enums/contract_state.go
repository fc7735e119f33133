package enums

import "fmt"

// ContractState maps to the state column on contracts. A contract starts
// active and ends in exactly one of completed or cancelled.
type ContractState string

const (
	ContractStateActive    ContractState = "active"
	ContractStateCompleted ContractState = "completed"
	ContractStateCancelled ContractState = "cancelled"
)

var validContractStates = []ContractState{
	ContractStateActive,
	ContractStateCompleted,
	ContractStateCancelled,
}

// String implements fmt.Stringer.
func (c ContractState) String() string {
	return string(c)
}

// IsValid reports whether the value matches the canonical contract state enum.
func (c ContractState) IsValid() bool {
	for _, candidate := range validContractStates {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the contract can never change state again.
func (c ContractState) IsTerminal() bool {
	return c == ContractStateCompleted || c == ContractStateCancelled
}

// ParseContractState converts the raw string to ContractState.
func ParseContractState(value string) (ContractState, error) {
	for _, candidate := range validContractStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contract state %q", value)
}
