package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/pkg/logger"
)

// FileSink appends one JSON line per event to the user's audit log.
type FileSink struct {
	paths storage.Paths
}

func NewFileSink(paths storage.Paths) *FileSink {
	return &FileSink{paths: paths}
}

func (s *FileSink) Record(ctx context.Context, userID int64, eventType string, details map[string]any) {
	event := newEvent(userID, eventType, details)

	line, err := json.Marshal(event)
	if err != nil {
		logger.ErrorContext(ctx, "audit event marshal failed", "event", eventType, "error", err)
		return
	}

	path := s.paths.AuditFile(userID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.ErrorContext(ctx, "audit log mkdir failed", "event", eventType, "error", err)
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.ErrorContext(ctx, "audit log open failed", "event", eventType, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		logger.ErrorContext(ctx, "audit log write failed", "event", eventType, "error", err)
	}
}
