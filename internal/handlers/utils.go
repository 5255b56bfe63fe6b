package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lingopeer/lingopeer/internal/auth"
	"github.com/lingopeer/lingopeer/internal/friends"
)

// extractCookieToken extracts a named cookie value from the "Cookie"
// header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// authedUserID resolves the authenticated caller from the auth_token
// cookie. Every operation trusts this id; credentials were checked at
// login.
func authedUserID(r *http.Request) (uuid.UUID, error) {
	cookieHeader := r.Header.Get("Cookie")
	if !strings.Contains(cookieHeader, "auth_token=") {
		return uuid.Nil, errors.New("missing auth_token")
	}
	sub, err := auth.AuthenticateJWT(extractCookieToken(cookieHeader, "auth_token"))
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// friendErrStatus maps the friend subsystem's error kinds to HTTP codes.
func friendErrStatus(err error) int {
	switch {
	case errors.Is(err, friends.ErrSelfRequest):
		return http.StatusBadRequest
	case errors.Is(err, friends.ErrAlreadyFriends),
		errors.Is(err, friends.ErrDuplicatePending):
		return http.StatusConflict
	case errors.Is(err, friends.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, friends.ErrInvalidTransition):
		return http.StatusForbidden
	case errors.Is(err, friends.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
