package enums

import "fmt"

// NotificationKind maps to the kind column on notifications.
type NotificationKind string

const (
	NotificationProposalReceived  NotificationKind = "proposal_received"
	NotificationProposalAccepted  NotificationKind = "proposal_accepted"
	NotificationProposalRejected  NotificationKind = "proposal_rejected"
	NotificationProposalWithdrawn NotificationKind = "proposal_withdrawn"
	NotificationContractCompleted NotificationKind = "contract_completed"
	NotificationContractCancelled NotificationKind = "contract_cancelled"
	NotificationReviewReceived    NotificationKind = "review_received"
	NotificationJobClosed         NotificationKind = "job_closed"
	NotificationPaymentReceived   NotificationKind = "payment_received"
)

var validNotificationKinds = []NotificationKind{
	NotificationProposalReceived,
	NotificationProposalAccepted,
	NotificationProposalRejected,
	NotificationProposalWithdrawn,
	NotificationContractCompleted,
	NotificationContractCancelled,
	NotificationReviewReceived,
	NotificationJobClosed,
	NotificationPaymentReceived,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid reports whether the value matches the canonical notification kind enum.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts the raw string to NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
