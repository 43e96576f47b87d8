package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/inspecthq/fieldreport/internal/domain"
)

// Register handles direct user registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Phone and password are required", "INVALID_INPUT")
		return
	}

	result, err := h.authService.Register(r.Context(), getClientIP(r), req.Phone, req.Password, req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Login handles user authentication
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Phone and password are required", "INVALID_INPUT")
		return
	}

	result, err := h.authService.Login(r.Context(), getClientIP(r), req.Phone, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RequestEmailCode sends a 6-digit verification code to the given address
func (h *Handlers) RequestEmailCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Phone, email and password are required", "INVALID_INPUT")
		return
	}

	if err := h.authService.RequestEmailCode(r.Context(), getClientIP(r), req.Phone, req.Email, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Verification code sent",
	})
}

// VerifyEmailCode checks the code and issues an access token
func (h *Handlers) VerifyEmailCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Phone and code are required", "INVALID_INPUT")
		return
	}

	result, err := h.authService.VerifyEmailCode(r.Context(), getClientIP(r), req.Phone, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Me returns the authenticated user's record
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUser(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies a partial profile update
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var upd domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), userID(r), upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
