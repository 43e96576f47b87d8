package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/inspecthq/fieldreport/internal/platform/oauthx"
	"github.com/inspecthq/fieldreport/internal/platform/transcribe"
)

const maxAudioUploadBytes = 64 << 20

// Transcribe turns an uploaded voice note into text. The legacy "iw" code is
// accepted as Hebrew.
func (h *Handlers) Transcribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", "INVALID_INPUT")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Audio file is required", "INVALID_INPUT")
		return
	}
	defer file.Close()

	tempDir, err := h.paths.TempDir(userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dest := filepath.Join(tempDir, strings.ReplaceAll(uuid.NewString(), "-", "")+filepath.Ext(header.Filename))
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
	defer os.Remove(dest)

	language := transcribe.NormalizeLanguage(r.FormValue("language"))
	text, err := h.transcriber.Transcribe(r.Context(), dest, language)
	if err != nil {
		if errors.Is(err, transcribe.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, err.Error(), "NOT_CONFIGURED")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"text":     text,
		"language": language,
	})
}

// OAuthExchange trades an authorization code for provider credentials
func (h *Handlers) OAuthExchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Authorization code is required", "INVALID_INPUT")
		return
	}

	creds, err := h.oauth.Exchange(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, oauthx.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, err.Error(), "NOT_CONFIGURED")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, creds)
}
