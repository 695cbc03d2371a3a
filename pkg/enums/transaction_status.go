package enums

import "fmt"

// TransactionStatus tracks whether a sale reached the remote ledger at checkout time.
type TransactionStatus string

const (
	TransactionStatusRecorded TransactionStatus = "recorded"
	TransactionStatusPending  TransactionStatus = "pending"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusRecorded,
	TransactionStatusPending,
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
