package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/pkg/logger"
)

type LocationRepository interface {
	List(userID int64) ([]string, error)
	// Add puts location at the front of the most-recently-used list,
	// deduplicating case-insensitively and trimming to the bound.
	Add(userID int64, location string) error
}

type locationsRecord struct {
	Locations []string `json:"locations"`
}

type locationRepository struct {
	paths    storage.Paths
	locks    *storage.KeyLock
	maxItems int
}

func NewLocationRepository(paths storage.Paths, locks *storage.KeyLock, maxItems int) LocationRepository {
	if maxItems <= 0 {
		maxItems = 5
	}
	return &locationRepository{paths: paths, locks: locks, maxItems: maxItems}
}

func (r *locationRepository) List(userID int64) ([]string, error) {
	unlock := r.locks.Lock("locations", userID)
	defer unlock()
	return r.listLocked(userID)
}

func (r *locationRepository) listLocked(userID int64) ([]string, error) {
	path := r.paths.LocationsFile(userID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read locations: %w", err)
	}

	locations, ok := decodeLocations(raw)
	if !ok {
		logger.Warn("locations file corrupt beyond recovery, discarding", "user_id", userID)
		os.Remove(path)
		return []string{}, nil
	}

	sanitized := sanitizeLocations(locations)
	if len(sanitized) != len(locations) || !equalStrings(sanitized, locations) {
		if err := storage.WriteJSON(path, locationsRecord{Locations: sanitized}); err != nil {
			logger.Error("failed to heal locations file", "user_id", userID, "error", err)
		}
	}
	return sanitized, nil
}

// decodeLocations accepts the canonical object form and, when recovering,
// either a salvaged object or a bare list.
func decodeLocations(raw []byte) ([]string, bool) {
	var rec locationsRecord
	if err := json.Unmarshal(raw, &rec); err == nil {
		return rec.Locations, true
	}

	if sub, ok := storage.LargestBracketed(raw, '{', '}'); ok {
		if err := json.Unmarshal(sub, &rec); err == nil {
			return rec.Locations, true
		}
	}
	if sub, ok := storage.LargestBracketed(raw, '[', ']'); ok {
		var list []string
		if err := json.Unmarshal(sub, &list); err == nil {
			return list, true
		}
	}
	return nil, false
}

func (r *locationRepository) Add(userID int64, location string) error {
	location = sanitizeLocation(location)
	if location == "" {
		return nil
	}

	unlock := r.locks.Lock("locations", userID)
	defer unlock()

	locations, err := r.listLocked(userID)
	if err != nil {
		return err
	}

	deduped := make([]string, 0, len(locations)+1)
	deduped = append(deduped, location)
	for _, l := range locations {
		if !strings.EqualFold(l, location) {
			deduped = append(deduped, l)
		}
	}
	if len(deduped) > r.maxItems {
		deduped = deduped[:r.maxItems]
	}

	return storage.WriteJSON(r.paths.LocationsFile(userID), locationsRecord{Locations: deduped})
}

// sanitizeLocation strips replacement chars, bidi marks and other
// non-printables that render as gibberish in documents.
func sanitizeLocation(value string) string {
	if value == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '�',
			'‎', '‏',
			'‪', '‫', '‬', '‭', '‮',
			'⁦', '⁧', '⁨', '⁩':
			continue
		}
		if !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func sanitizeLocations(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if cleaned := sanitizeLocation(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
