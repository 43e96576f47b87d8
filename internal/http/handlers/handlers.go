package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inspecthq/fieldreport/internal/domain"
	"github.com/inspecthq/fieldreport/internal/platform/oauthx"
	"github.com/inspecthq/fieldreport/internal/platform/transcribe"
	"github.com/inspecthq/fieldreport/internal/repo/filestore"
	"github.com/inspecthq/fieldreport/internal/service"
	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/pkg/auth"
	"github.com/inspecthq/fieldreport/pkg/config"
	"github.com/inspecthq/fieldreport/pkg/logger"
)

type claimsKeyType struct{}

var claimsKey claimsKeyType

type Handlers struct {
	authService   service.AuthService
	reportService service.ReportService
	contacts      filestore.ContactRepository
	transcriber   transcribe.Transcriber
	oauth         oauthx.Exchanger
	paths         storage.Paths
	config        *config.Config
}

func New(
	authService service.AuthService,
	reportService service.ReportService,
	contacts filestore.ContactRepository,
	transcriber transcribe.Transcriber,
	oauth oauthx.Exchanger,
	paths storage.Paths,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		authService:   authService,
		reportService: reportService,
		contacts:      contacts,
		transcriber:   transcriber,
		oauth:         oauth,
		paths:         paths,
		config:        cfg,
	}
}

// Middleware for JWT authentication
func (h *Handlers) RequireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Helper functions
func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func userID(r *http.Request) int64 {
	if claims := getClaims(r); claims != nil {
		return claims.Sub
	}
	return 0
}

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	response := map[string]string{
		"error": message,
		"code":  code,
	}
	writeJSON(w, statusCode, response)
}

// writeServiceError maps domain sentinels onto HTTP statuses. Throttled
// errors carry a Retry-After hint for the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var throttled *domain.ThrottledError
	if errors.As(err, &throttled) {
		if secs := int(throttled.RetryAfter.Seconds()); secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		code := "RATE_LIMIT_EXCEEDED"
		if errors.Is(err, domain.ErrLocked) {
			code = "ACCOUNT_LOCKED"
		}
		writeError(w, http.StatusTooManyRequests, err.Error(), code)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, domain.ErrNoActiveSession):
		writeError(w, http.StatusNotFound, err.Error(), "NO_ACTIVE_SESSION")
	case errors.Is(err, domain.ErrSessionActive):
		writeError(w, http.StatusConflict, err.Error(), "SESSION_ACTIVE")
	case errors.Is(err, domain.ErrDuplicatePhone):
		writeError(w, http.StatusConflict, err.Error(), "DUPLICATE_PHONE")
	case errors.Is(err, domain.ErrAlreadyVerified):
		writeError(w, http.StatusConflict, err.Error(), "ALREADY_VERIFIED")
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrWrongPassword),
		errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, err.Error(), "UNAUTHORIZED")
	case errors.Is(err, domain.ErrNotVerified):
		writeError(w, http.StatusForbidden, err.Error(), "NOT_VERIFIED")
	case errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrNoCodeRequested),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrTooManyPhotos):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}
