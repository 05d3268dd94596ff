package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

const defaultBufferSize = 256

// Dispatcher is a Sink that persists events asynchronously. Publish never
// blocks: when the buffer is full the event is dropped and counted, which
// is acceptable for advisory messages.
type Dispatcher struct {
	repo Repository
	logg *logger.Logger

	events chan Event
	done   chan struct{}
	once   sync.Once
}

// NewDispatcher wires an async notification dispatcher and starts its
// delivery worker.
func NewDispatcher(repo Repository, logg *logger.Logger, bufferSize int) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	d := &Dispatcher{
		repo:   repo,
		logg:   logg,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	go d.run()
	return d, nil
}

// Publish implements Sink.
func (d *Dispatcher) Publish(event Event) {
	select {
	case d.events <- event:
	default:
		ctx := d.logg.WithField(context.Background(), "account_id", event.AccountID.String())
		d.logg.Warn(ctx, "notification buffer full, dropping event")
	}
}

// Close stops the worker after draining buffered events.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.events)
		<-d.done
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.events {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	ctx := d.logg.WithAccountID(context.Background(), event.AccountID.String())
	if event.AccountID == uuid.Nil || !event.Kind.IsValid() {
		d.logg.Warn(ctx, "discarding malformed notification event")
		return
	}
	notification := &models.Notification{
		ID:        uuid.New(),
		AccountID: event.AccountID,
		Kind:      event.Kind,
		Title:     event.Title,
		Message:   event.Message,
	}
	if err := d.repo.Create(ctx, notification); err != nil {
		d.logg.Error(ctx, "persisting notification", err)
	}
}
