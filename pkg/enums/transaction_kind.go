package enums

import "fmt"

// TransactionKind labels every money movement recorded in the journal.
type TransactionKind string

const (
	TransactionKindInvestmentDebit   TransactionKind = "investment_debit"
	TransactionKindAccrualCredit     TransactionKind = "accrual_credit"
	TransactionKindDeposit           TransactionKind = "deposit"
	TransactionKindWithdrawal        TransactionKind = "withdrawal"
	TransactionKindProjectInvestment TransactionKind = "project_investment"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindInvestmentDebit,
	TransactionKindAccrualCredit,
	TransactionKindDeposit,
	TransactionKindWithdrawal,
	TransactionKindProjectInvestment,
}

// String implements fmt.Stringer.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// Approvable reports whether transactions of this kind wait for an admin
// decision. System-generated kinds resolve immediately.
func (k TransactionKind) Approvable() bool {
	return k == TransactionKindDeposit || k == TransactionKindWithdrawal
}

// ParseTransactionKind converts raw input into a TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
