package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/inspecthq/fieldreport/internal/domain"
	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/pkg/logger"
)

type StatsRepository interface {
	Get(userID int64) (*domain.UserStats, error)
	Increment(userID int64, field string, amount int) error
}

type statsRepository struct {
	paths storage.Paths
	locks *storage.KeyLock
}

func NewStatsRepository(paths storage.Paths, locks *storage.KeyLock) StatsRepository {
	return &statsRepository{paths: paths, locks: locks}
}

func (r *statsRepository) Get(userID int64) (*domain.UserStats, error) {
	unlock := r.locks.Lock("stats", userID)
	defer unlock()
	return r.getLocked(userID)
}

func (r *statsRepository) getLocked(userID int64) (*domain.UserStats, error) {
	path := r.paths.StatsFile(userID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.UserStats{}, nil
		}
		return nil, fmt.Errorf("read stats: %w", err)
	}

	var stats domain.UserStats
	if jsonErr := json.Unmarshal(raw, &stats); jsonErr == nil {
		return &stats, nil
	}

	recovered, recErr := storage.DecodeObjectLenient[domain.UserStats](raw, nil)
	if recErr != nil {
		recovered = recoverStatsByRegex(raw)
	}
	if recovered == nil {
		logger.Warn("stats file corrupt beyond recovery, resetting", "user_id", userID)
		os.Remove(path)
		return &domain.UserStats{}, nil
	}

	logger.Warn("stats file recovered leniently", "user_id", userID)
	if err := r.saveLocked(userID, recovered); err != nil {
		logger.Error("failed to heal stats file", "user_id", userID, "error", err)
	}
	return recovered, nil
}

var (
	statsIntPattern  = regexp.MustCompile(`"(reports_started|reports_created|items_added|photos_added)"\s*:\s*(\d+)`)
	statsTimePattern = regexp.MustCompile(`"last_updated"\s*:\s*"([^"]*)"`)
)

// recoverStatsByRegex is the last salvage tier: pull out whichever integer
// counters survive in the raw bytes.
func recoverStatsByRegex(raw []byte) *domain.UserStats {
	matches := statsIntPattern.FindAllSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil
	}

	stats := &domain.UserStats{}
	for _, m := range matches {
		var n int
		if _, err := fmt.Sscanf(string(m[2]), "%d", &n); err != nil {
			continue
		}
		stats.Bump(string(m[1]), n)
	}
	if m := statsTimePattern.FindSubmatch(raw); m != nil {
		stats.LastUpdated = string(m[1])
	}
	return stats
}

func (r *statsRepository) saveLocked(userID int64, stats *domain.UserStats) error {
	stats.Touch()
	return storage.WriteJSON(r.paths.StatsFile(userID), stats)
}

func (r *statsRepository) Increment(userID int64, field string, amount int) error {
	unlock := r.locks.Lock("stats", userID)
	defer unlock()

	stats, err := r.getLocked(userID)
	if err != nil {
		return err
	}
	stats.Bump(field, amount)
	return r.saveLocked(userID, stats)
}
