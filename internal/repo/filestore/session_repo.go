package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/inspecthq/fieldreport/internal/domain"
	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/pkg/logger"
)

type SessionRepository interface {
	// Get returns an independent copy of the live draft, reloading
	// session.json after a restart. Returns domain.ErrNotFound when no
	// draft is active.
	Get(userID int64) (*domain.ReportSession, error)
	// Save persists the draft. The repository keeps its own copy, so the
	// caller's session stays private to the caller.
	Save(session *domain.ReportSession) error
	// Delete removes the live draft and its file. Deleting an absent draft
	// is a no-op.
	Delete(userID int64) error
}

type sessionRepository struct {
	paths storage.Paths

	mu    sync.Mutex
	cache map[int64]*domain.ReportSession
}

func NewSessionRepository(paths storage.Paths) SessionRepository {
	return &sessionRepository{
		paths: paths,
		cache: make(map[int64]*domain.ReportSession),
	}
}

func (r *sessionRepository) Get(userID int64) (*domain.ReportSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.cache[userID]; ok {
		return s.Clone(), nil
	}

	path := r.paths.SessionFile(userID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var session domain.ReportSession
	if jsonErr := json.Unmarshal(raw, &session); jsonErr != nil {
		recovered, recErr := storage.DecodeObjectLenient[domain.ReportSession](raw, func(s *domain.ReportSession) bool {
			return s.UserID != 0
		})
		if recErr != nil {
			logger.Warn("session file corrupt beyond recovery, discarding", "user_id", userID)
			os.Remove(path)
			return nil, domain.ErrNotFound
		}
		session = *recovered
		logger.Warn("session file recovered leniently", "user_id", userID)
		if err := storage.WriteJSON(path, &session); err != nil {
			logger.Error("failed to heal session file", "user_id", userID, "error", err)
		}
	}

	r.cache[userID] = &session
	return session.Clone(), nil
}

func (r *sessionRepository) Save(session *domain.ReportSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := storage.WriteJSON(r.paths.SessionFile(session.UserID), session); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	r.cache[session.UserID] = session.Clone()
	return nil
}

func (r *sessionRepository) Delete(userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.cache, userID)
	if err := os.Remove(r.paths.SessionFile(userID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
