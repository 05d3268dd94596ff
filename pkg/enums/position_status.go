package enums

import "fmt"

// PositionStatus is the lifecycle state of an investment position.
// Completed is terminal; there is no reverse transition.
type PositionStatus string

const (
	PositionStatusActive    PositionStatus = "active"
	PositionStatusCompleted PositionStatus = "completed"
)

var validPositionStatuses = []PositionStatus{
	PositionStatusActive,
	PositionStatusCompleted,
}

// String implements fmt.Stringer.
func (s PositionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s PositionStatus) IsValid() bool {
	for _, candidate := range validPositionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePositionStatus converts raw input into a PositionStatus.
func ParsePositionStatus(value string) (PositionStatus, error) {
	for _, candidate := range validPositionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid position status %q", value)
}
