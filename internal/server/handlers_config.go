package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/devopsevgeny/FinalProject/internal/authz"
	"github.com/devopsevgeny/FinalProject/internal/store"
)

type putItemReq struct {
	Value json.RawMessage `json:"value"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	p, err := authPrincipal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/config/")

	switch r.Method {
	case http.MethodGet:
		if err := s.authorize(r, p, authz.ActionConfigGet, path); err != nil {
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
			entry, err = s.store.GetConfigVersion(r.Context(), path, version)
		} else {
			entry, err = s.store.GetConfig(r.Context(), path)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		s.emit(r, p, "config.get", path, map[string]any{"version": entry.Version})
		writeJSON(w, entry)

	case http.MethodPost:
		if err := s.authorize(r, p, authz.ActionConfigPut, path); err != nil {
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
		entry, err := s.store.PutConfig(r.Context(), path, value, actor)
		if err != nil {
			writeError(w, err)
			return
		}
		s.emit(r, p, "config.put", path, map[string]any{"version": entry.Version})
		writeJSONStatus(w, http.StatusCreated, entry)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// decodeItemBody reads {"value": ...} and re-decodes the payload with number
// fidelity preserved, so 1 and 1.0 stay distinct all the way down.
func decodeItemBody(body io.Reader) (any, error) {
	var req putItemReq
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, errBadJSON
	}
	if len(req.Value) == 0 {
		return nil, errValueRequired
	}
	value, err := store.DecodeValue(req.Value)
	if err != nil {
		return nil, errBadJSON
	}
	return value, nil
}
