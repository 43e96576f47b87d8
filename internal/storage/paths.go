// Package storage implements the shared file-backed record protocol: a
// per-user on-disk layout, atomic writes, lenient corruption recovery and
// per-key mutual exclusion. Every higher-level store is built on it.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Paths maps users and reports to their files under one storage root.
type Paths struct {
	Root string
}

func NewPaths(root string) Paths {
	return Paths{Root: root}
}

func (p Paths) UsersFile() string {
	return filepath.Join(p.Root, "users.json")
}

func (p Paths) UserDir(userID int64) string {
	return filepath.Join(p.Root, strconv.FormatInt(userID, 10))
}

func (p Paths) ContactsFile(userID int64) string {
	return filepath.Join(p.UserDir(userID), "contacts.json")
}

func (p Paths) LocationsFile(userID int64) string {
	return filepath.Join(p.UserDir(userID), "locations.json")
}

func (p Paths) StatsFile(userID int64) string {
	return filepath.Join(p.UserDir(userID), "stats.json")
}

func (p Paths) SessionFile(userID int64) string {
	return filepath.Join(p.UserDir(userID), "session.json")
}

func (p Paths) ReportsIndexFile(userID int64) string {
	return filepath.Join(p.UserDir(userID), "reports.json")
}

func (p Paths) AuditFile(userID int64) string {
	return filepath.Join(p.UserDir(userID), "audit.log")
}

// TempDir is the per-user scratch area for uploads awaiting archival.
func (p Paths) TempDir(userID int64) (string, error) {
	dir := filepath.Join(p.UserDir(userID), "temp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// ReportDir is the content directory of one archived report.
func (p Paths) ReportDir(userID int64, reportID string) (string, error) {
	dir := filepath.Join(p.UserDir(userID), "reports", reportID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// ReportDirPath returns the directory path without creating it.
func (p Paths) ReportDirPath(userID int64, reportID string) string {
	return filepath.Join(p.UserDir(userID), "reports", reportID)
}
