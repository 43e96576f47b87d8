// Package audit records an append-only event for every state-changing call,
// giving operators a forensic trail independent of the lossy-recoverable
// primary stores. Sink failures are logged, never propagated.
package audit

import (
	"context"
	"time"
)

type Event struct {
	Timestamp string         `json:"ts"`
	UserID    int64          `json:"user_id"`
	Type      string         `json:"event"`
	Details   map[string]any `json:"details"`
}

type Sink interface {
	Record(ctx context.Context, userID int64, eventType string, details map[string]any)
}

func newEvent(userID int64, eventType string, details map[string]any) Event {
	if details == nil {
		details = map[string]any{}
	}
	return Event{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05") + "Z",
		UserID:    userID,
		Type:      eventType,
		Details:   details,
	}
}

// MultiSink fans events out to every configured sink.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Record(ctx context.Context, userID int64, eventType string, details map[string]any) {
	for _, s := range m.sinks {
		s.Record(ctx, userID, eventType, details)
	}
}

// NopSink discards events; useful in tests.
type NopSink struct{}

func (NopSink) Record(ctx context.Context, userID int64, eventType string, details map[string]any) {}
