package enums

import "fmt"

// WalletEntryKind maps to the kind column on wallet_transactions. Credits
// add funds to the wallet, debits remove them. Amounts are stored signed,
// so the kind is a readable label rather than the arithmetic source of
// truth.
type WalletEntryKind string

const (
	WalletEntryCredit WalletEntryKind = "credit"
	WalletEntryDebit  WalletEntryKind = "debit"
)

var validWalletEntryKinds = []WalletEntryKind{
	WalletEntryCredit,
	WalletEntryDebit,
}

// String implements fmt.Stringer.
func (w WalletEntryKind) String() string {
	return string(w)
}

// IsValid reports whether the value matches the canonical wallet entry kind enum.
func (w WalletEntryKind) IsValid() bool {
	for _, candidate := range validWalletEntryKinds {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletEntryKind converts the raw string to WalletEntryKind.
func ParseWalletEntryKind(value string) (WalletEntryKind, error) {
	for _, candidate := range validWalletEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet entry kind %q", value)
}
