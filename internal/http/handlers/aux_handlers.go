package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/inspecthq/fieldreport/internal/domain"
)

// ListContacts returns the user's saved contact book
func (h *Handlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.List(userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"contacts": contacts,
	})
}

// AddContact appends a contact to the user's book
func (h *Handlers) AddContact(w http.ResponseWriter, r *http.Request) {
	var contact domain.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil || strings.TrimSpace(contact.Name) == "" {
		writeError(w, http.StatusBadRequest, "Contact name is required", "INVALID_INPUT")
		return
	}

	if contact.ID == "" {
		contact.ID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if err := h.contacts.Add(userID(r), contact); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

// SaveContacts replaces the whole contact book
func (h *Handlers) SaveContacts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contacts []domain.Contact `json:"contacts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	kept := make([]domain.Contact, 0, len(req.Contacts))
	for _, c := range req.Contacts {
		if c.ID == "" {
			c.ID = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		if c.Valid() {
			kept = append(kept, c)
		}
	}

	if err := h.contacts.Save(userID(r), kept); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"contacts": kept,
	})
}

// ListLocations returns the most-recently-used locations
func (h *Handlers) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.reportService.Locations(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"locations": locations,
	})
}

// GetStats returns the user's lifetime usage counters
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reportService.Stats(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListTemplates returns the available report templates
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates": domain.Templates,
	})
}
