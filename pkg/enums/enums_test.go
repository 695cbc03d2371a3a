package enums

import "testing"

func TestParsePaymentMethod(t *testing.T) {
	t.Parallel()

	got, err := ParsePaymentMethod("mobile_money")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != PaymentMethodMobileMoney {
		t.Fatalf("expected mobile_money, got %q", got)
	}
	if _, err := ParsePaymentMethod("Cash"); err == nil {
		t.Fatal("expected case-sensitive parse to reject Cash")
	}
}

func TestTransactionStatusIsValid(t *testing.T) {
	t.Parallel()

	if !TransactionStatusPending.IsValid() || !TransactionStatusRecorded.IsValid() {
		t.Fatal("expected canonical statuses to be valid")
	}
	if TransactionStatus("delivered").IsValid() {
		t.Fatal("unexpected status accepted")
	}
}

func TestDeadLetterReasonIsValid(t *testing.T) {
	t.Parallel()

	if !DeadLetterReasonMaxAttempts.IsValid() {
		t.Fatal("expected max_attempts to be valid")
	}
	if DeadLetterReason("timeout").IsValid() {
		t.Fatal("unexpected reason accepted")
	}
}
