package notify

import (
	"github.com/google/uuid"

	"github.com/vaultline/vaultyield-backend/pkg/enums"
)

// Event is a user-facing message emitted by a domain flow.
type Event struct {
	AccountID uuid.UUID
	Kind      enums.NotificationKind
	Title     string
	Message   string
}

// Sink accepts events without blocking the caller. Delivery is best effort;
// a failed or dropped event never fails the flow that emitted it.
type Sink interface {
	Publish(event Event)
}

// NoopSink discards every event.
type NoopSink struct{}

// Publish implements Sink.
func (NoopSink) Publish(Event) {}
