package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/inspecthq/fieldreport/internal/audit"
	"github.com/inspecthq/fieldreport/internal/domain"
	"github.com/inspecthq/fieldreport/internal/platform/render"
	"github.com/inspecthq/fieldreport/internal/repo/filestore"
	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/pkg/config"
	"github.com/inspecthq/fieldreport/pkg/logger"
)

// FinalizeResult carries the archived summary plus the rendered document for
// the caller to serve back.
type FinalizeResult struct {
	Summary      *domain.ReportSummary `json:"summary"`
	DocumentPath string                `json:"-"`
}

type ReportService interface {
	// Draft session state machine.
	Start(ctx context.Context, userID int64, location, templateKey, projectName string) (*domain.ReportSession, error)
	Session(ctx context.Context, userID int64) (*domain.ReportSession, error)
	AddItem(ctx context.Context, userID int64, description, notes string) (*domain.ReportItem, error)
	AddPhoto(ctx context.Context, userID int64, filePath, itemID, caption string) (*domain.ReportPhoto, error)
	UpdateItem(ctx context.Context, userID int64, itemID, description, notes string) error
	SetContacts(ctx context.Context, userID int64, attendees, distribution []string) error
	Finalize(ctx context.Context, userID int64) (*FinalizeResult, error)
	Cancel(ctx context.Context, userID int64) error

	// Archive.
	ListReports(ctx context.Context, userID int64) ([]domain.ReportSummary, error)
	OpenReport(ctx context.Context, userID int64, reportID string) (*domain.ReportSession, error)
	Organize(ctx context.Context, userID int64, reportID, folder string, tags []string) (*domain.ReportSummary, error)
	DeleteReport(ctx context.Context, userID int64, reportID string) (bool, error)
	Resume(ctx context.Context, userID int64, reportID string) (*domain.ReportSession, error)

	// Auxiliary reads.
	Locations(ctx context.Context, userID int64) ([]string, error)
	Stats(ctx context.Context, userID int64) (*domain.UserStats, error)
}

type reportService struct {
	sessions  filestore.SessionRepository
	reports   filestore.ReportRepository
	users     filestore.UserRepository
	contacts  filestore.ContactRepository
	locations filestore.LocationRepository
	stats     filestore.StatsRepository
	renderer  render.Renderer
	audit     audit.Sink
	locks     *storage.KeyLock
	paths     storage.Paths

	onConflict config.StartConflictPolicy
	maxPhotos  int
}

func NewReportService(
	sessions filestore.SessionRepository,
	reports filestore.ReportRepository,
	users filestore.UserRepository,
	contacts filestore.ContactRepository,
	locations filestore.LocationRepository,
	stats filestore.StatsRepository,
	renderer render.Renderer,
	sink audit.Sink,
	locks *storage.KeyLock,
	paths storage.Paths,
	onConflict config.StartConflictPolicy,
	maxPhotos int,
) ReportService {
	return &reportService{
		sessions:   sessions,
		reports:    reports,
		users:      users,
		contacts:   contacts,
		locations:  locations,
		stats:      stats,
		renderer:   renderer,
		audit:      sink,
		locks:      locks,
		paths:      paths,
		onConflict: onConflict,
		maxPhotos:  maxPhotos,
	}
}

func (s *reportService) bump(userID int64, field string) {
	if err := s.stats.Increment(userID, field, 1); err != nil {
		logger.Warn("stats increment failed", "user_id", userID, "field", field, "error", err)
	}
}

// Start opens a new draft. When a draft is already active the configured
// conflict policy decides: reject, discard it, or archive it first.
func (s *reportService) Start(ctx context.Context, userID int64, location, templateKey, projectName string) (*domain.ReportSession, error) {
	unlock := s.locks.Lock("session", userID)
	defer unlock()

	prior, err := s.sessions.Get(userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if prior != nil {
		switch s.onConflict {
		case config.ConflictReject:
			return nil, domain.ErrSessionActive
		case config.ConflictArchivePrior:
			if _, err := s.finalizeLocked(ctx, userID, prior); err != nil {
				return nil, fmt.Errorf("archive prior draft: %w", err)
			}
		default:
			logger.WarnContext(ctx, "discarding active draft on start",
				"user_id", userID, "items", len(prior.Items), "photos", len(prior.Photos))
		}
	}

	location = strings.TrimSpace(location)
	session := domain.NewReportSession(userID, location, domain.TemplateByKey(templateKey), strings.TrimSpace(projectName))
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	if location != "" {
		if err := s.locations.Add(userID, location); err != nil {
			logger.Warn("recording recent location failed", "user_id", userID, "error", err)
		}
	}
	s.bump(userID, domain.StatReportsStarted)
	s.audit.Record(ctx, userID, "START_REPORT", map[string]any{
		"location":     session.Location,
		"template_key": session.TemplateKey,
	})
	return session, nil
}

func (s *reportService) Session(ctx context.Context, userID int64) (*domain.ReportSession, error) {
	session, err := s.sessions.Get(userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoActiveSession
	}
	return session, err
}

func (s *reportService) AddItem(ctx context.Context, userID int64, description, notes string) (*domain.ReportItem, error) {
	unlock := s.locks.Lock("session", userID)
	defer unlock()

	session, err := s.sessions.Get(userID)
	if err != nil {
		return nil, domain.ErrNoActiveSession
	}

	item := domain.ReportItem{
		ID:          newID(),
		Number:      session.NextNumber(),
		Description: strings.TrimSpace(description),
		Notes:       strings.TrimSpace(notes),
	}
	session.Items = append(session.Items, item)
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	s.bump(userID, domain.StatItemsAdded)
	s.audit.Record(ctx, userID, "ADD_ITEM", map[string]any{"item_id": item.ID, "number": item.Number})
	return &item, nil
}

// AddPhoto keeps the photo even when itemID is stale: a bad selector clears
// the binding rather than losing user data.
func (s *reportService) AddPhoto(ctx context.Context, userID int64, filePath, itemID, caption string) (*domain.ReportPhoto, error) {
	unlock := s.locks.Lock("session", userID)
	defer unlock()

	session, err := s.sessions.Get(userID)
	if err != nil {
		return nil, domain.ErrNoActiveSession
	}
	if s.maxPhotos > 0 && len(session.Photos) >= s.maxPhotos {
		return nil, domain.ErrTooManyPhotos
	}

	itemID = strings.TrimSpace(itemID)
	if itemID != "" && session.ItemByID(itemID) == nil {
		logger.WarnContext(ctx, "photo item not found, clearing binding", "user_id", userID, "item_id", itemID)
		itemID = ""
	}

	photo := domain.ReportPhoto{
		ID:       newID(),
		FilePath: filePath,
		ItemID:   itemID,
		Caption:  strings.TrimSpace(caption),
	}
	session.Photos = append(session.Photos, photo)
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	s.bump(userID, domain.StatPhotosAdded)
	s.audit.Record(ctx, userID, "ADD_PHOTO", map[string]any{"photo_id": photo.ID, "item_id": itemID})
	return &photo, nil
}

func (s *reportService) UpdateItem(ctx context.Context, userID int64, itemID, description, notes string) error {
	unlock := s.locks.Lock("session", userID)
	defer unlock()

	session, err := s.sessions.Get(userID)
	if err != nil {
		return domain.ErrNoActiveSession
	}

	item := session.ItemByID(itemID)
	if item == nil {
		return domain.ErrNotFound
	}
	item.Description = strings.TrimSpace(description)
	item.Notes = strings.TrimSpace(notes)

	if err := s.sessions.Save(session); err != nil {
		return err
	}
	s.audit.Record(ctx, userID, "UPDATE_ITEM", map[string]any{"item_id": itemID})
	return nil
}

func (s *reportService) SetContacts(ctx context.Context, userID int64, attendees, distribution []string) error {
	unlock := s.locks.Lock("session", userID)
	defer unlock()

	session, err := s.sessions.Get(userID)
	if err != nil {
		return domain.ErrNoActiveSession
	}

	if attendees == nil {
		attendees = []string{}
	}
	if distribution == nil {
		distribution = []string{}
	}
	session.Attendees = attendees
	session.DistributionList = distribution

	if err := s.sessions.Save(session); err != nil {
		return err
	}
	s.audit.Record(ctx, userID, "SET_CONTACTS", map[string]any{
		"attendees":    len(attendees),
		"distribution": len(distribution),
	})
	return nil
}

// Finalize closes the draft, renders the document and archives it. The
// per-user lock is held for the whole archival copy so a concurrent Start
// cannot race it. The draft is removed before archival by design; a render
// or archive failure afterwards loses the draft, never corrupts the archive.
func (s *reportService) Finalize(ctx context.Context, userID int64) (*FinalizeResult, error) {
	unlock := s.locks.Lock("session", userID)
	defer unlock()

	session, err := s.sessions.Get(userID)
	if err != nil {
		return nil, domain.ErrNoActiveSession
	}
	return s.finalizeLocked(ctx, userID, session)
}

func (s *reportService) finalizeLocked(ctx context.Context, userID int64, session *domain.ReportSession) (*FinalizeResult, error) {
	if err := s.sessions.Delete(userID); err != nil {
		return nil, err
	}

	profile, err := s.users.GetByID(userID)
	if err != nil {
		profile = nil
	}
	participants, err := s.contacts.ByIDs(userID, session.Attendees)
	if err != nil {
		logger.WarnContext(ctx, "resolving attendees failed", "user_id", userID, "error", err)
		participants = nil
	}

	tempDir, err := s.paths.TempDir(userID)
	if err != nil {
		return nil, err
	}
	docPath, err := s.renderer.Render(session, profile, participants, tempDir)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	summary, err := s.reports.Save(userID, session, docPath)
	if err != nil {
		return nil, fmt.Errorf("archive report: %w", err)
	}

	s.bump(userID, domain.StatReportsCreated)
	s.audit.Record(ctx, userID, "FINALIZE_REPORT", map[string]any{
		"report_id": summary.ReportID,
		"items":     len(session.Items),
		"photos":    len(session.Photos),
	})
	return &FinalizeResult{Summary: summary, DocumentPath: docPath}, nil
}

func (s *reportService) Cancel(ctx context.Context, userID int64) error {
	unlock := s.locks.Lock("session", userID)
	defer unlock()

	if _, err := s.sessions.Get(userID); err != nil {
		return domain.ErrNoActiveSession
	}
	if err := s.sessions.Delete(userID); err != nil {
		return err
	}
	s.audit.Record(ctx, userID, "CANCEL_REPORT", nil)
	return nil
}

func (s *reportService) ListReports(ctx context.Context, userID int64) ([]domain.ReportSummary, error) {
	return s.reports.List(userID)
}

func (s *reportService) OpenReport(ctx context.Context, userID int64, reportID string) (*domain.ReportSession, error) {
	return s.reports.Open(userID, reportID)
}

func (s *reportService) Organize(ctx context.Context, userID int64, reportID, folder string, tags []string) (*domain.ReportSummary, error) {
	summary, err := s.reports.Organize(userID, reportID, folder, tags)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, "ORGANIZE_REPORT", map[string]any{"report_id": reportID, "folder": folder})
	return summary, nil
}

func (s *reportService) DeleteReport(ctx context.Context, userID int64, reportID string) (bool, error) {
	deleted, err := s.reports.Delete(userID, reportID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.audit.Record(ctx, userID, "DELETE_REPORT", map[string]any{"report_id": reportID})
	}
	return deleted, nil
}

// Resume reopens an archived snapshot as the active draft, subject to the
// same conflict policy as Start.
func (s *reportService) Resume(ctx context.Context, userID int64, reportID string) (*domain.ReportSession, error) {
	unlock := s.locks.Lock("session", userID)
	defer unlock()

	prior, err := s.sessions.Get(userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if prior != nil {
		switch s.onConflict {
		case config.ConflictReject:
			return nil, domain.ErrSessionActive
		case config.ConflictArchivePrior:
			if _, err := s.finalizeLocked(ctx, userID, prior); err != nil {
				return nil, fmt.Errorf("archive prior draft: %w", err)
			}
		default:
			logger.WarnContext(ctx, "discarding active draft on resume",
				"user_id", userID, "items", len(prior.Items), "photos", len(prior.Photos))
		}
	}

	session, err := s.reports.Open(userID, reportID)
	if err != nil {
		return nil, err
	}
	session.UserID = userID

	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, "RESUME_REPORT", map[string]any{"report_id": reportID})
	return session, nil
}

func (s *reportService) Locations(ctx context.Context, userID int64) ([]string, error) {
	return s.locations.List(userID)
}

func (s *reportService) Stats(ctx context.Context, userID int64) (*domain.UserStats, error) {
	return s.stats.Get(userID)
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
