package filestore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inspecthq/fieldreport/internal/domain"
	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/pkg/logger"
)

type ReportRepository interface {
	List(userID int64) ([]domain.ReportSummary, error)
	// Save archives a finalized session: copies the rendered document and
	// every referenced photo into the report directory (rewriting photo
	// paths), writes the session snapshot, and only then prepends the
	// summary to the index. A crash mid-way leaves at worst an unindexed
	// directory, never an indexed report with missing content.
	Save(userID int64, session *domain.ReportSession, renderedPath string) (*domain.ReportSummary, error)
	Open(userID int64, reportID string) (*domain.ReportSession, error)
	Organize(userID int64, reportID, folder string, tags []string) (*domain.ReportSummary, error)
	// Delete removes the index row first, then best-effort removes the
	// content directory. Returns false without error for unknown ids.
	Delete(userID int64, reportID string) (bool, error)
}

type reportRepository struct {
	paths storage.Paths
	locks *storage.KeyLock
}

func NewReportRepository(paths storage.Paths, locks *storage.KeyLock) ReportRepository {
	return &reportRepository{paths: paths, locks: locks}
}

func (r *reportRepository) List(userID int64) ([]domain.ReportSummary, error) {
	unlock := r.locks.Lock("reports", userID)
	defer unlock()
	return r.listLocked(userID)
}

func (r *reportRepository) listLocked(userID int64) ([]domain.ReportSummary, error) {
	path := r.paths.ReportsIndexFile(userID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.ReportSummary{}, nil
		}
		return nil, fmt.Errorf("read report index: %w", err)
	}

	var summaries []domain.ReportSummary
	if jsonErr := json.Unmarshal(raw, &summaries); jsonErr == nil {
		return summaries, nil
	}

	recovered, recErr := storage.DecodeListLenient[domain.ReportSummary](raw, func(s *domain.ReportSummary) bool {
		return s.ReportID != ""
	})
	if recErr != nil {
		logger.Warn("report index corrupt beyond recovery, discarding", "user_id", userID)
		os.Remove(path)
		return []domain.ReportSummary{}, nil
	}

	logger.Warn("report index recovered leniently", "user_id", userID, "kept", len(recovered))
	if err := storage.WriteJSON(path, recovered); err != nil {
		logger.Error("failed to heal report index", "user_id", userID, "error", err)
	}
	return recovered, nil
}

func (r *reportRepository) saveIndexLocked(userID int64, summaries []domain.ReportSummary) error {
	return storage.WriteJSON(r.paths.ReportsIndexFile(userID), summaries)
}

func (r *reportRepository) Save(userID int64, session *domain.ReportSession, renderedPath string) (*domain.ReportSummary, error) {
	reportID := strings.ReplaceAll(uuid.NewString(), "-", "")
	reportDir, err := r.paths.ReportDir(userID, reportID)
	if err != nil {
		return nil, err
	}

	if err := copyFile(renderedPath, filepath.Join(reportDir, filepath.Base(renderedPath))); err != nil {
		return nil, fmt.Errorf("copy rendered document: %w", err)
	}

	photosDir := filepath.Join(reportDir, "photos")
	if err := os.MkdirAll(photosDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir photos: %w", err)
	}

	// Rewrite photo paths into the report's own directory. A missing source
	// file keeps its original entry rather than dropping the photo.
	updated := make([]domain.ReportPhoto, 0, len(session.Photos))
	for _, photo := range session.Photos {
		dest := filepath.Join(photosDir, filepath.Base(photo.FilePath))
		if err := copyFile(photo.FilePath, dest); err != nil {
			logger.Warn("photo missing at archive time, keeping original path",
				"user_id", userID, "photo_id", photo.ID, "error", err)
			updated = append(updated, photo)
			continue
		}
		photo.FilePath = dest
		updated = append(updated, photo)
	}
	session.Photos = updated

	if err := storage.WriteJSON(filepath.Join(reportDir, "report.json"), session); err != nil {
		return nil, fmt.Errorf("write report snapshot: %w", err)
	}

	summary := domain.ReportSummary{
		ReportID:    reportID,
		CreatedAt:   domain.Timestamp(time.Now()),
		Location:    session.Location,
		TemplateKey: session.TemplateKey,
		Title:       session.Title,
		ProjectName: session.ProjectName,
		Tags:        []string{},
	}

	unlock := r.locks.Lock("reports", userID)
	defer unlock()

	summaries, err := r.listLocked(userID)
	if err != nil {
		return nil, err
	}
	summaries = append([]domain.ReportSummary{summary}, summaries...)
	if err := r.saveIndexLocked(userID, summaries); err != nil {
		return nil, fmt.Errorf("persist report index: %w", err)
	}
	return &summary, nil
}

func (r *reportRepository) Open(userID int64, reportID string) (*domain.ReportSession, error) {
	raw, err := os.ReadFile(filepath.Join(r.paths.ReportDirPath(userID, reportID), "report.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read report snapshot: %w", err)
	}

	var session domain.ReportSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode report snapshot: %w", err)
	}
	return &session, nil
}

func (r *reportRepository) Organize(userID int64, reportID, folder string, tags []string) (*domain.ReportSummary, error) {
	unlock := r.locks.Lock("reports", userID)
	defer unlock()

	summaries, err := r.listLocked(userID)
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		if summaries[i].ReportID == reportID {
			summaries[i].Folder = folder
			if tags == nil {
				tags = []string{}
			}
			summaries[i].Tags = tags
			if err := r.saveIndexLocked(userID, summaries); err != nil {
				return nil, fmt.Errorf("persist report index: %w", err)
			}
			result := summaries[i]
			return &result, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *reportRepository) Delete(userID int64, reportID string) (bool, error) {
	unlock := r.locks.Lock("reports", userID)
	defer unlock()

	summaries, err := r.listLocked(userID)
	if err != nil {
		return false, err
	}

	kept := summaries[:0]
	found := false
	for _, s := range summaries {
		if s.ReportID == reportID {
			found = true
			continue
		}
		kept = append(kept, s)
	}

	dir := r.paths.ReportDirPath(userID, reportID)
	if !found {
		// Idempotent retry: the index row may already be gone while the
		// directory still exists.
		if _, statErr := os.Stat(dir); statErr == nil {
			if err := os.RemoveAll(dir); err != nil {
				logger.Warn("failed to remove report directory", "user_id", userID, "report_id", reportID, "error", err)
			}
		}
		return false, nil
	}

	if err := r.saveIndexLocked(userID, kept); err != nil {
		return false, fmt.Errorf("persist report index: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("failed to remove report directory", "user_id", userID, "report_id", reportID, "error", err)
	}
	return true, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
