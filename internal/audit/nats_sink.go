package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/inspecthq/fieldreport/pkg/logger"
)

// NATSSink publishes audit events on a NATS subject so external consumers
// can tail the trail without touching the per-user log files.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

func NewNATSSink(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) Record(ctx context.Context, userID int64, eventType string, details map[string]any) {
	event := newEvent(userID, eventType, details)

	payload, err := json.Marshal(event)
	if err != nil {
		logger.ErrorContext(ctx, "audit event marshal failed", "event", eventType, "error", err)
		return
	}

	if err := s.conn.Publish(s.subject, payload); err != nil {
		logger.ErrorContext(ctx, "audit event publish failed", "event", eventType, "error", err)
	}
}

func (s *NATSSink) Close() {
	s.conn.Close()
}
