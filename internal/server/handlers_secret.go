package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/devopsevgeny/FinalProject/internal/authz"
	"github.com/devopsevgeny/FinalProject/internal/store"
)

func (s *Server) handleSecret(w http.ResponseWriter, r *http.Request) {
	p, err := authPrincipal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/secret/")

	switch r.Method {
	case http.MethodGet:
		if err := s.authorize(r, p, authz.ActionSecretGet, path); err != nil {
			writeError(w, err)
			return
		}
		version, err := versionParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var entry store.Entry
		if version > 0 {
			entry, err = s.store.GetSecretVersion(r.Context(), path, version)
		} else {
			entry, err = s.store.GetSecret(r.Context(), path)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		masked := r.URL.Query().Get("mask") == "true"
		if masked {
			var decoded any
			if err := json.Unmarshal(entry.Value, &decoded); err != nil {
				writeError(w, err)
				return
			}
			redacted, err := json.Marshal(maskValue(decoded))
			if err != nil {
				writeError(w, err)
				return
			}
			entry.Value = redacted
		}
		s.emit(r, p, "secret.get", path, map[string]any{"version": entry.Version, "masked": masked})
		writeJSON(w, entry)

	case http.MethodPost:
		if err := s.authorize(r, p, authz.ActionSecretPut, path); err != nil {
			writeError(w, err)
			return
		}
		value, err := decodeItemBody(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		actor, err := s.actorID(r, p)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		entry, err := s.store.PutSecret(r.Context(), path, value, actor)
		if err != nil {
			writeError(w, err)
			return
		}
		// Never echo secret material back on a write.
		entry.Value = nil
		s.emit(r, p, "secret.put", path, map[string]any{"version": entry.Version})
		writeJSONStatus(w, http.StatusCreated, entry)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
