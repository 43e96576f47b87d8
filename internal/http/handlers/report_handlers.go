package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/inspecthq/fieldreport/pkg/logger"
)

const maxPhotoUploadBytes = 32 << 20

// StartReport opens a new draft session
func (h *Handlers) StartReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location    string `json:"location"`
		TemplateKey string `json:"template_key"`
		ProjectName string `json:"project_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	session, err := h.reportService.Start(r.Context(), userID(r), req.Location, req.TemplateKey, req.ProjectName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// GetSession returns the active draft
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.reportService.Session(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// CancelSession discards the active draft
func (h *Handlers) CancelSession(w http.ResponseWriter, r *http.Request) {
	if err := h.reportService.Cancel(r.Context(), userID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Draft discarded",
	})
}

// AddItem appends a numbered finding to the draft
func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "Description is required", "INVALID_INPUT")
		return
	}

	item, err := h.reportService.AddItem(r.Context(), userID(r), req.Description, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem rewrites an existing finding
func (h *Handlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := pathParam(r, "id")

	var req struct {
		Description string `json:"description"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "Description is required", "INVALID_INPUT")
		return
	}

	if err := h.reportService.UpdateItem(r.Context(), userID(r), itemID, req.Description, req.Notes); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Item updated",
	})
}

// AddPhoto receives a multipart upload and attaches it to the draft. The
// item_id field is optional; an unknown id is tolerated and cleared.
func (h *Handlers) AddPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", "INVALID_INPUT")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Photo file is required", "INVALID_INPUT")
		return
	}
	defer file.Close()

	uid := userID(r)
	tempDir, err := h.paths.TempDir(uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ext := filepath.Ext(header.Filename)
	dest := filepath.Join(tempDir, strings.ReplaceAll(uuid.NewString(), "-", "")+ext)
	out, err := os.Create(dest)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dest)
		writeServiceError(w, err)
		return
	}
	out.Close()

	photo, err := h.reportService.AddPhoto(r.Context(), uid, dest, r.FormValue("item_id"), r.FormValue("caption"))
	if err != nil {
		os.Remove(dest)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

// SetSessionContacts replaces the draft's attendee and distribution lists
func (h *Handlers) SetSessionContacts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Attendees        []string `json:"attendees"`
		DistributionList []string `json:"distribution_list"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	if err := h.reportService.SetContacts(r.Context(), userID(r), req.Attendees, req.DistributionList); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Contacts updated",
	})
}

// FinalizeReport closes the draft, renders the document and archives it
func (h *Handlers) FinalizeReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.reportService.Finalize(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logger.InfoContext(r.Context(), "Report finalized", "report_id", result.Summary.ReportID)
	writeJSON(w, http.StatusOK, result)
}
