package domain

import (
	"strconv"
	"time"
)

// ReportItem is one numbered finding inside a draft session. Numbers are
// assigned at creation and never reused or renumbered.
type ReportItem struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Description string `json:"description"`
	Notes       string `json:"notes,omitempty"`
}

// ReportPhoto points into per-user temp storage until the session is
// archived, after which the path is rewritten into the report directory.
type ReportPhoto struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	ItemID   string `json:"item_id,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// ReportSession is the single in-progress draft for a user.
type ReportSession struct {
	UserID           int64         `json:"user_id"`
	CreatedAt        string        `json:"created_at"`
	Location         string        `json:"location"`
	Title            string        `json:"title"`
	TemplateKey      string        `json:"template_key"`
	ProjectName      string        `json:"project_name,omitempty"`
	Attendees        []string      `json:"attendees"`
	DistributionList []string      `json:"distribution_list"`
	Items            []ReportItem  `json:"items"`
	Photos           []ReportPhoto `json:"photos"`
}

func NewReportSession(userID int64, location string, tpl ReportTemplate, projectName string) *ReportSession {
	return &ReportSession{
		UserID:           userID,
		CreatedAt:        Timestamp(time.Now()),
		Location:         location,
		Title:            tpl.Title,
		TemplateKey:      tpl.Key,
		ProjectName:      projectName,
		Attendees:        []string{},
		DistributionList: []string{},
		Items:            []ReportItem{},
		Photos:           []ReportPhoto{},
	}
}

// Clone returns a copy with its own slices, safe to hand out while the
// original keeps being mutated.
func (s *ReportSession) Clone() *ReportSession {
	cp := *s
	cp.Attendees = make([]string, len(s.Attendees))
	copy(cp.Attendees, s.Attendees)
	cp.DistributionList = make([]string, len(s.DistributionList))
	copy(cp.DistributionList, s.DistributionList)
	cp.Items = make([]ReportItem, len(s.Items))
	copy(cp.Items, s.Items)
	cp.Photos = make([]ReportPhoto, len(s.Photos))
	copy(cp.Photos, s.Photos)
	return &cp
}

// NextNumber is the count-at-creation + 1 rule: gapless, strictly increasing
// within one session.
func (s *ReportSession) NextNumber() string {
	return strconv.Itoa(len(s.Items) + 1)
}

func (s *ReportSession) ItemByID(itemID string) *ReportItem {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return &s.Items[i]
		}
	}
	return nil
}

// ReportSummary is one row of the per-user archive index, newest first.
type ReportSummary struct {
	ReportID    string   `json:"report_id"`
	CreatedAt   string   `json:"created_at"`
	Location    string   `json:"location"`
	TemplateKey string   `json:"template_key"`
	Title       string   `json:"title"`
	Folder      string   `json:"folder"`
	ProjectName string   `json:"project_name,omitempty"`
	Tags        []string `json:"tags"`
}
