package enums

// DeadLetterReason explains why an offline sale was set aside instead of retried.
type DeadLetterReason string

const (
	DeadLetterReasonMaxAttempts  DeadLetterReason = "max_attempts"
	DeadLetterReasonNonRetryable DeadLetterReason = "non_retryable"
)

var validDeadLetterReasons = []DeadLetterReason{
	DeadLetterReasonMaxAttempts,
	DeadLetterReasonNonRetryable,
}

func (r DeadLetterReason) IsValid() bool {
	for _, candidate := range validDeadLetterReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
