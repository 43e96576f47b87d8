package handlers

import (
	"encoding/json"
	"net/http"
)

// ListReports returns the archive index, newest first
func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reportService.ListReports(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
	})
}

// GetReport returns a full archived snapshot
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.OpenReport(r.Context(), userID(r), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// OrganizeReport updates an archived report's folder and tags
func (h *Handlers) OrganizeReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Folder string   `json:"folder"`
		Tags   []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	summary, err := h.reportService.Organize(r.Context(), userID(r), pathParam(r, "id"), req.Folder, req.Tags)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// DeleteReport removes an archived report; deleting twice is not an error
func (h *Handlers) DeleteReport(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.reportService.DeleteReport(r.Context(), userID(r), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
	})
}

// ResumeReport reopens an archived snapshot as the active draft
func (h *Handlers) ResumeReport(w http.ResponseWriter, r *http.Request) {
	session, err := h.reportService.Resume(r.Context(), userID(r), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
