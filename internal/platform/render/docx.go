package render

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/inspecthq/fieldreport/internal/domain"
)

var ErrPandocMissing = errors.New("pandoc not installed")

// DocxRenderer converts the HTML document to DOCX with pandoc.
type DocxRenderer struct {
	PandocPath string
}

func NewDocxRenderer(pandocPath string) *DocxRenderer {
	if pandocPath == "" {
		pandocPath = "pandoc"
	}
	return &DocxRenderer{PandocPath: pandocPath}
}

func (r *DocxRenderer) Render(session *domain.ReportSession, profile *domain.UserRecord, participants []domain.Contact, outDir string) (string, error) {
	if _, err := exec.LookPath(r.PandocPath); err != nil {
		return "", fmt.Errorf("%w: %s", ErrPandocMissing, r.PandocPath)
	}

	doc := BuildHTML(session, profile, participants)
	path := filepath.Join(outDir, fmt.Sprintf("report_%s.docx", uuid.NewString()))

	cmd := exec.Command(r.PandocPath,
		"-f", "html",
		"-t", "docx",
		"--standalone",
		"-o", path,
	)
	cmd.Stdin = strings.NewReader(doc)

	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("pandoc failed: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return path, nil
}
