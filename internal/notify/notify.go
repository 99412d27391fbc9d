package notify

import (
	"context"
	"sync"
	"time"

	"github.com/veridoc/veridoc/pkg/logger"
)

// Event kinds emitted by the engine.
const (
	EventSubmitted = "submitted"
	EventApproved  = "approved"
	EventRejected  = "rejected"
	EventReleased  = "released"
	EventWithdrawn = "withdrawn"
	EventObsoleted = "obsoleted"
	EventPromoted  = "promoted"
)

// Event is a notification about a document, addressed to the people who
// should hear about it. Delivery itself (mail, chat, webhooks) happens
// outside this service; we only hand events to a transport.
type Event struct {
	Type       string            `json:"type"`
	DocumentID string            `json:"documentId"`
	Number     string            `json:"number"`
	Version    string            `json:"version"`
	Recipients []string          `json:"recipients"`
	Payload    map[string]string `json:"payload,omitempty"`
	At         time.Time         `json:"at"`
}

// Notifier hands an event to the delivery transport. Best-effort: callers
// log failures and move on, a lost notification never rolls back a state
// change.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NopNotifier is used when no transport is configured; it only logs.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, ev Event) error {
	logger.Debugf("notify (no transport): %s %s %s -> %v", ev.Type, ev.Number, ev.Version, ev.Recipients)
	return nil
}

// MemoryNotifier collects events for assertions in tests.
type MemoryNotifier struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryNotifier() *MemoryNotifier { return &MemoryNotifier{} }

func (m *MemoryNotifier) Notify(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryNotifier) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event{}, m.events...)
}
