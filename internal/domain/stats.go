package domain

import "time"

// Counter field names accepted by the stats store.
const (
	StatReportsStarted = "reports_started"
	StatReportsCreated = "reports_created"
	StatItemsAdded     = "items_added"
	StatPhotosAdded    = "photos_added"
)

// UserStats holds fixed named usage counters for one user.
type UserStats struct {
	ReportsStarted int    `json:"reports_started"`
	ReportsCreated int    `json:"reports_created"`
	ItemsAdded     int    `json:"items_added"`
	PhotosAdded    int    `json:"photos_added"`
	LastUpdated    string `json:"last_updated"`
}

func (s *UserStats) Touch() {
	s.LastUpdated = Timestamp(time.Now())
}

// Bump increments the named counter; unknown names are ignored.
func (s *UserStats) Bump(field string, amount int) {
	switch field {
	case StatReportsStarted:
		s.ReportsStarted += amount
	case StatReportsCreated:
		s.ReportsCreated += amount
	case StatItemsAdded:
		s.ItemsAdded += amount
	case StatPhotosAdded:
		s.PhotosAdded += amount
	}
}
