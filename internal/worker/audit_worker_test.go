package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
	"github.com/itsmibrahim123/ExpenseManager/internal/events"
)

type fakeConsumer struct {
	envelopes []*events.Envelope
	started   chan struct{}
}

func (c *fakeConsumer) Consume(ctx context.Context, handler func(*events.Envelope) error) error {
	for _, env := range c.envelopes {
		if err := ctx.Err(); err != nil {
			return err
		}
		handler(env)
	}
	if c.started != nil {
		close(c.started)
	}
	<-ctx.Done()
	return ctx.Err()
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []core.AuditLog
	fail    error
}

func (s *fakeAuditStore) Create(ctx context.Context, entry core.AuditLog) (core.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return core.AuditLog{}, s.fail
	}
	entry.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *fakeAuditStore) List(ctx context.Context, ownerID int64, limit int) ([]core.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AuditLog
	for _, e := range s.entries {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestAuditWorker_Handle(t *testing.T) {
	store := &fakeAuditStore{}
	w := NewAuditWorker(nil, store)

	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	env := &events.Envelope{
		EventID:   "evt-1",
		EventType: "transaction.created",
		OwnerID:   7,
		EntityID:  42,
		Detail:    "Groceries",
		Timestamp: ts,
	}

	if err := w.Handle(env); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(store.entries))
	}
	entry := store.entries[0]
	if entry.OwnerID != 7 || entry.EntityID != 42 {
		t.Errorf("entry owner/entity = %d/%d, want 7/42", entry.OwnerID, entry.EntityID)
	}
	if entry.Action != "transaction.created" {
		t.Errorf("entry.Action = %q, want transaction.created", entry.Action)
	}
	if entry.Entity != "transaction" {
		t.Errorf("entry.Entity = %q, want transaction", entry.Entity)
	}
	if entry.Detail != "Groceries" {
		t.Errorf("entry.Detail = %q, want Groceries", entry.Detail)
	}
	if !entry.CreatedAt.Equal(ts) {
		t.Errorf("entry.CreatedAt = %v, want event timestamp %v", entry.CreatedAt, ts)
	}
}

func TestAuditWorker_HandleStoreError(t *testing.T) {
	store := &fakeAuditStore{fail: errors.New("disk full")}
	w := NewAuditWorker(nil, store)

	err := w.Handle(&events.Envelope{EventID: "evt-2", EventType: "transfer.completed"})
	if err == nil {
		t.Fatal("Handle() should propagate store errors so the delivery is requeued")
	}
}

func TestEntityFromEventType(t *testing.T) {
	tests := []struct {
		eventType string
		expected  string
	}{
		{"transaction.created", "transaction"},
		{"transaction.cleared", "transaction"},
		{"transfer.completed", "transfer"},
		{"heartbeat", "heartbeat"},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			if got := entityFromEventType(tt.eventType); got != tt.expected {
				t.Errorf("entityFromEventType(%q) = %q, want %q", tt.eventType, got, tt.expected)
			}
		})
	}
}

func TestAuditWorker_Lifecycle(t *testing.T) {
	consumer := &fakeConsumer{
		envelopes: []*events.Envelope{
			{EventID: "evt-1", EventType: "transaction.created", OwnerID: 1, EntityID: 1},
			{EventID: "evt-2", EventType: "transaction.cleared", OwnerID: 1, EntityID: 1},
		},
		started: make(chan struct{}),
	}
	store := &fakeAuditStore{}
	w := NewAuditWorker(consumer, store)

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Error("second Start() should fail while running")
	}
	if !w.IsRunning() {
		t.Error("IsRunning() should be true after Start")
	}

	select {
	case <-consumer.started:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer never drained its envelopes")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if w.IsRunning() {
		t.Error("IsRunning() should be false after Stop")
	}

	store.mu.Lock()
	count := len(store.entries)
	store.mu.Unlock()
	if count != 2 {
		t.Errorf("expected 2 audit entries, got %d", count)
	}

	// Stop on a stopped worker is a no-op.
	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
