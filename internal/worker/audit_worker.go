package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
	"github.com/itsmibrahim123/ExpenseManager/internal/events"
	"github.com/itsmibrahim123/ExpenseManager/internal/services"
)

// Consumer delivers event envelopes until the context is cancelled.
type Consumer interface {
	Consume(ctx context.Context, handler func(*events.Envelope) error) error
}

// AuditWorker consumes domain events and persists them as audit log rows.
type AuditWorker struct {
	consumer Consumer
	audits   services.AuditStore

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewAuditWorker(consumer Consumer, audits services.AuditStore) *AuditWorker {
	return &AuditWorker{
		consumer: consumer,
		audits:   audits,
	}
}

// Start begins consuming in a background goroutine. Returns an error if
// already running.
func (w *AuditWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("audit worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Audit worker started")
	return nil
}

// Stop gracefully stops the worker and waits for completion.
func (w *AuditWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Audit worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Audit worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// IsRunning returns whether the worker is currently consuming.
func (w *AuditWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *AuditWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := w.consumer.Consume(ctx, w.Handle); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Audit consumer exited", "error", err)
	}
}

// Handle persists a single event envelope as an audit log row.
func (w *AuditWorker) Handle(envelope *events.Envelope) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry := core.AuditLog{
		OwnerID:   envelope.OwnerID,
		Action:    envelope.EventType,
		Entity:    entityFromEventType(envelope.EventType),
		EntityID:  envelope.EntityID,
		Detail:    envelope.Detail,
		CreatedAt: envelope.Timestamp,
	}

	if _, err := w.audits.Create(ctx, entry); err != nil {
		return fmt.Errorf("persist audit entry for event %s: %w", envelope.EventID, err)
	}

	slog.DebugContext(ctx, "Recorded audit entry",
		"event_id", envelope.EventID,
		"action", envelope.EventType,
		"entity_id", envelope.EntityID)

	return nil
}

// entityFromEventType maps "transaction.created" to "transaction" and so on.
// Unknown shapes fall back to the full event type.
func entityFromEventType(eventType string) string {
	if idx := strings.IndexByte(eventType, '.'); idx > 0 {
		return eventType[:idx]
	}
	return eventType
}
