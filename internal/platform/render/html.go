package render

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/inspecthq/fieldreport/internal/domain"
)

// HTMLRenderer writes a standalone HTML document. It is also the input stage
// for the pandoc-backed DOCX renderer.
type HTMLRenderer struct{}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

func (r *HTMLRenderer) Render(session *domain.ReportSession, profile *domain.UserRecord, participants []domain.Contact, outDir string) (string, error) {
	doc := BuildHTML(session, profile, participants)
	path := filepath.Join(outDir, fmt.Sprintf("report_%s.html", uuid.NewString()))
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("write rendered document: %w", err)
	}
	return path, nil
}

// BuildHTML assembles the document body shared by both renderers.
func BuildHTML(session *domain.ReportSession, profile *domain.UserRecord, participants []domain.Contact) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n</head>\n<body>\n", html.EscapeString(session.Title))
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(session.Title))

	if session.Location != "" {
		fmt.Fprintf(&b, "<p><strong>Location:</strong> %s</p>\n", html.EscapeString(session.Location))
	}
	if session.ProjectName != "" {
		fmt.Fprintf(&b, "<p><strong>Project:</strong> %s</p>\n", html.EscapeString(session.ProjectName))
	}
	fmt.Fprintf(&b, "<p><strong>Date:</strong> %s</p>\n", html.EscapeString(session.CreatedAt))
	if profile != nil && profile.FullName != "" {
		author := profile.FullName
		if profile.RoleTitle != "" {
			author += ", " + profile.RoleTitle
		}
		fmt.Fprintf(&b, "<p><strong>Prepared by:</strong> %s</p>\n", html.EscapeString(author))
	}

	if len(participants) > 0 {
		b.WriteString("<h2>Attendees</h2>\n<ul>\n")
		for _, c := range participants {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(c.Name))
		}
		b.WriteString("</ul>\n")
	}

	b.WriteString("<h2>Findings</h2>\n")
	if len(session.Items) == 0 {
		b.WriteString("<p>No findings recorded.</p>\n")
	}
	for _, item := range session.Items {
		fmt.Fprintf(&b, "<h3>%s. %s</h3>\n", html.EscapeString(item.Number), html.EscapeString(item.Description))
		if item.Notes != "" {
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(item.Notes))
		}
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}
