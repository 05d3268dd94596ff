package enums

import "testing"

func TestTransactionKindValidation(t *testing.T) {
	for _, kind := range validTransactionKinds {
		if !kind.IsValid() {
			t.Fatalf("%s should be valid", kind)
		}
	}
	if TransactionKind("refund").IsValid() {
		t.Fatal("unknown kind should be invalid")
	}

	if _, err := ParseTransactionKind("deposit"); err != nil {
		t.Fatalf("parse deposit: %v", err)
	}
	if _, err := ParseTransactionKind("nope"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTransactionKindApprovable(t *testing.T) {
	if !TransactionKindDeposit.Approvable() || !TransactionKindWithdrawal.Approvable() {
		t.Fatal("deposit and withdrawal require approval")
	}
	if TransactionKindAccrualCredit.Approvable() {
		t.Fatal("accrual credits resolve immediately")
	}
	if TransactionKindInvestmentDebit.Approvable() {
		t.Fatal("investment debits resolve immediately")
	}
}

func TestTransactionStatusResolved(t *testing.T) {
	if TransactionStatusPending.Resolved() {
		t.Fatal("pending is not terminal")
	}
	if !TransactionStatusCompleted.Resolved() || !TransactionStatusRejected.Resolved() {
		t.Fatal("completed and rejected are terminal")
	}
}

func TestPositionStatusParse(t *testing.T) {
	status, err := ParsePositionStatus("active")
	if err != nil || status != PositionStatusActive {
		t.Fatalf("unexpected parse result: %v %v", status, err)
	}
	if _, err := ParsePositionStatus("paused"); err == nil {
		t.Fatal("expected parse error for unknown status")
	}
}
