package offlinequeue

import (
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/marco-pos/internal/transactions"
	"github.com/angelmondragon/marco-pos/pkg/enums"
)

const (
	envelopeVersion    = 1
	maxDeadLetterError = 1024
)

// Entry is a queued sale plus its delivery bookkeeping.
type Entry struct {
	Payload       transactions.Payload `json:"payload"`
	Attempts      int                  `json:"attempts"`
	LastError     string               `json:"last_error,omitempty"`
	EnqueuedAt    time.Time            `json:"enqueued_at"`
	LastAttemptAt *time.Time           `json:"last_attempt_at,omitempty"`
}

// DeadLetter is an entry that will not be retried automatically.
type DeadLetter struct {
	Entry
	Reason       enums.DeadLetterReason `json:"reason"`
	ErrorMessage string                 `json:"error_message"`
	FailedAt     time.Time              `json:"failed_at"`
}

type envelope struct {
	Version     int          `json:"version"`
	Entries     []Entry      `json:"entries"`
	DeadLetters []DeadLetter `json:"dead_letters"`
}

func truncateError(message string) string {
	if len(message) <= maxDeadLetterError {
		return message
	}
	cut := maxDeadLetterError
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return truncateError(err.Error())
}
