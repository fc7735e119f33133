package enums

import "fmt"

// JobState maps to the state column on jobs.
//
// open     accepts proposals
// awarded  has an active contract
// completed, closed are terminal
type JobState string

const (
	JobStateOpen      JobState = "open"
	JobStateAwarded   JobState = "awarded"
	JobStateCompleted JobState = "completed"
	JobStateClosed    JobState = "closed"
)

var validJobStates = []JobState{
	JobStateOpen,
	JobStateAwarded,
	JobStateCompleted,
	JobStateClosed,
}

// String implements fmt.Stringer.
func (j JobState) String() string {
	return string(j)
}

// IsValid reports whether the value matches the canonical job state enum.
func (j JobState) IsValid() bool {
	for _, candidate := range validJobStates {
		if candidate == j {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the job can never change state again.
func (j JobState) IsTerminal() bool {
	return j == JobStateCompleted || j == JobStateClosed
}

// ParseJobState converts the raw string to JobState.
func ParseJobState(value string) (JobState, error) {
	for _, candidate := range validJobStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job state %q", value)
}
