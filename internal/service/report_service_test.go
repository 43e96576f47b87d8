package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspecthq/fieldreport/internal/audit"
	"github.com/inspecthq/fieldreport/internal/domain"
	"github.com/inspecthq/fieldreport/internal/repo/filestore"
	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/pkg/config"
)

type stubRenderer struct{}

func (stubRenderer) Render(session *domain.ReportSession, profile *domain.UserRecord, participants []domain.Contact, outDir string) (string, error) {
	path := filepath.Join(outDir, "report.html")
	return path, os.WriteFile(path, []byte("<html>"+session.Title+"</html>"), 0o644)
}

func newTestReportService(t *testing.T, policy config.StartConflictPolicy) ReportService {
	t.Helper()
	paths := storage.NewPaths(t.TempDir())
	locks := storage.NewKeyLock()
	return NewReportService(
		filestore.NewSessionRepository(paths),
		filestore.NewReportRepository(paths, locks),
		filestore.NewUserRepository(paths),
		filestore.NewContactRepository(paths, locks),
		filestore.NewLocationRepository(paths, locks, 5),
		filestore.NewStatsRepository(paths, locks),
		stubRenderer{},
		audit.NopSink{},
		locks,
		paths,
		policy,
		50,
	)
}

func TestStartAssignsSequentialItemNumbers(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "INSPECTION_REPORT", "")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		item, err := svc.AddItem(ctx, 1, "finding", "")
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(i), item.Number)
	}

	session, err := svc.Session(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, session.Items, 3)
}

func TestAddItemWithoutSession(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)

	_, err := svc.AddItem(context.Background(), 1, "finding", "")
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestAddPhotoClearsStaleItemBinding(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)

	photo, err := svc.AddPhoto(ctx, 1, "/tmp/missing.jpg", "no-such-item", "cracked beam")
	require.NoError(t, err)
	assert.Empty(t, photo.ItemID)
	assert.Equal(t, "cracked beam", photo.Caption)
}

func TestAddPhotoKeepsValidItemBinding(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, 1, "finding", "")
	require.NoError(t, err)

	photo, err := svc.AddPhoto(ctx, 1, "/tmp/missing.jpg", item.ID, "")
	require.NoError(t, err)
	assert.Equal(t, item.ID, photo.ItemID)
}

func TestFinalizeWithNoItemsSucceeds(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)

	result, err := svc.Finalize(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, result.Summary)
	assert.NotEmpty(t, result.Summary.ReportID)

	_, err = svc.Session(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	list, err := svc.ListReports(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFinalizeArchivesPhotosUnderReportDir(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(src, []byte{0xff, 0xd8}, 0o644))

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)
	_, err = svc.AddPhoto(ctx, 1, src, "", "")
	require.NoError(t, err)

	result, err := svc.Finalize(ctx, 1)
	require.NoError(t, err)

	archived, err := svc.OpenReport(ctx, 1, result.Summary.ReportID)
	require.NoError(t, err)
	require.Len(t, archived.Photos, 1)
	assert.Contains(t, archived.Photos[0].FilePath, result.Summary.ReportID)
	_, err = os.Stat(archived.Photos[0].FilePath)
	assert.NoError(t, err)
}

func TestConcurrentSessionReadsDuringItemWrites(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := svc.AddItem(ctx, 1, "finding", "")
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			session, err := svc.Session(ctx, 1)
			if !assert.NoError(t, err) {
				return
			}
			_, err = json.Marshal(session)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	session, err := svc.Session(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, session.Items, 50)
}

func TestStartRejectPolicy(t *testing.T) {
	svc := newTestReportService(t, config.ConflictReject)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)

	_, err = svc.Start(ctx, 1, "Site B", "", "")
	assert.ErrorIs(t, err, domain.ErrSessionActive)
}

func TestStartDiscardPolicyDropsPriorDraft(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 1, "finding", "")
	require.NoError(t, err)

	session, err := svc.Start(ctx, 1, "Site B", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Site B", session.Location)
	assert.Empty(t, session.Items)

	list, err := svc.ListReports(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStartArchivePriorPolicy(t *testing.T) {
	svc := newTestReportService(t, config.ConflictArchivePrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)

	session, err := svc.Start(ctx, 1, "Site B", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Site B", session.Location)

	list, err := svc.ListReports(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Site A", list[0].Location)
}

func TestCancelRemovesDraft(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	require.Error(t, svc.Cancel(ctx, 1))

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, 1))

	_, err = svc.Session(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestDeleteReportIsIdempotent(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)
	result, err := svc.Finalize(ctx, 1)
	require.NoError(t, err)

	deleted, err := svc.DeleteReport(ctx, 1, result.Summary.ReportID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteReport(ctx, 1, result.Summary.ReportID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestResumeReopensArchivedReport(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "Roof survey")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 1, "finding", "note")
	require.NoError(t, err)
	result, err := svc.Finalize(ctx, 1)
	require.NoError(t, err)

	session, err := svc.Resume(ctx, 1, result.Summary.ReportID)
	require.NoError(t, err)
	assert.Equal(t, "Site A", session.Location)
	assert.Len(t, session.Items, 1)

	active, err := svc.Session(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Site A", active.Location)
}

func TestResumeArchivePriorPolicy(t *testing.T) {
	svc := newTestReportService(t, config.ConflictArchivePrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)
	result, err := svc.Finalize(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Start(ctx, 1, "Site B", "", "")
	require.NoError(t, err)

	session, err := svc.Resume(ctx, 1, result.Summary.ReportID)
	require.NoError(t, err)
	assert.Equal(t, "Site A", session.Location)

	// The Site B draft was archived, not discarded.
	list, err := svc.ListReports(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Site B", list[0].Location)
}

func TestStartRecordsRecentLocation(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Harbor Yard", "", "")
	require.NoError(t, err)

	locations, err := svc.Locations(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Harbor Yard"}, locations)
}

func TestFinalizeBumpsCounters(t *testing.T) {
	svc := newTestReportService(t, config.ConflictDiscardPrior)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "Site A", "", "")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 1, "finding", "")
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, 1)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ReportsStarted)
	assert.Equal(t, 1, stats.ReportsCreated)
	assert.Equal(t, 1, stats.ItemsAdded)
}
