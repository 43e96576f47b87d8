// Package render turns a finalized session into a shareable document file.
// Rendering fidelity is deliberately out of scope of the record layer; the
// renderers here are thin collaborators.
package render

import "github.com/inspecthq/fieldreport/internal/domain"

type Renderer interface {
	// Render writes the document for session into outDir and returns the
	// file path. Participants are the resolved attendee contacts.
	Render(session *domain.ReportSession, profile *domain.UserRecord, participants []domain.Contact, outDir string) (string, error)
}
