package enums

import "testing"

func TestTransactionStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TransactionStatus
		allowed  bool
	}{
		{TransactionStatusPending, TransactionStatusSuccessful, true},
		{TransactionStatusPending, TransactionStatusFailed, true},
		{TransactionStatusPending, TransactionStatusPending, false},
		{TransactionStatusSuccessful, TransactionStatusFailed, false},
		{TransactionStatusFailed, TransactionStatusSuccessful, false},
		{TransactionStatusSuccessful, TransactionStatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestParseTransactionStatus(t *testing.T) {
	status, err := ParseTransactionStatus("successful")
	if err != nil || status != TransactionStatusSuccessful {
		t.Fatalf("unexpected parse result %q %v", status, err)
	}
	if _, err := ParseTransactionStatus("refunded"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
	if TransactionStatus("refunded").IsValid() {
		t.Fatalf("expected refunded to be invalid")
	}
}
