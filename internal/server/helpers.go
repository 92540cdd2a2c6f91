package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/devopsevgeny/FinalProject/internal/auth"
	"github.com/devopsevgeny/FinalProject/internal/authz"
	"github.com/devopsevgeny/FinalProject/internal/crypto"
	"github.com/devopsevgeny/FinalProject/internal/store"
	"github.com/devopsevgeny/FinalProject/internal/users"
)

var (
	errBadJSON       = errors.New("bad json")
	errValueRequired = errors.New("value required")
)

func authPrincipal(r *http.Request) (*auth.Principal, error) {
	return auth.MustPrincipal(r)
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func tooMany(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	http.Error(w, "too many requests", http.StatusTooManyRequests)
}

// writeError maps domain errors onto HTTP statuses. Decryption failures are
// deliberately reported as a bare 500: the response must not disclose
// whether the ciphertext, key or binding was at fault.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidPath):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, authz.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, users.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, store.ErrContention):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, users.ErrExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, crypto.ErrIntegrity):
		http.Error(w, "integrity check failed", http.StatusInternalServerError)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// actorID picks the identity recorded as created_by / audit actor: an
// explicit X-Actor-Id header wins, then the principal's own ID when it is a
// UUID, then the configured system actor. A malformed header is a client
// error, not something to silently fall through.
func (s *Server) actorID(r *http.Request, p *auth.Principal) (string, error) {
	if h := r.Header.Get("X-Actor-Id"); h != "" {
		id, err := uuid.Parse(h)
		if err != nil {
			return "", errors.New("X-Actor-Id must be a UUID")
		}
		return id.String(), nil
	}
	if p != nil {
		if id, err := uuid.Parse(p.ID); err == nil {
			return id.String(), nil
		}
	}
	return s.cfg.SystemActorID, nil
}

// versionParam parses an optional ?version=N. Zero means "current".
func versionParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("version")
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return 0, errors.New("version must be a positive integer")
	}
	return v, nil
}
