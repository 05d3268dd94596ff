package enums

// NotificationKind classifies user-facing messages.
type NotificationKind string

const (
	NotificationKindAccrual    NotificationKind = "accrual"
	NotificationKindInvestment NotificationKind = "investment"
	NotificationKindDeposit    NotificationKind = "deposit"
	NotificationKindWithdrawal NotificationKind = "withdrawal"
	NotificationKindProject    NotificationKind = "project"
)

// String implements fmt.Stringer.
func (k NotificationKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k NotificationKind) IsValid() bool {
	switch k {
	case NotificationKindAccrual,
		NotificationKindInvestment,
		NotificationKindDeposit,
		NotificationKindWithdrawal,
		NotificationKindProject:
		return true
	}
	return false
}
