package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/devopsevgeny/FinalProject/internal/authz"
)

type grantReq struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := authPrincipal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.authorize(r, p, authz.ActionUserList, "users"); err != nil {
		writeError(w, err)
		return
	}
	list, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := authPrincipal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req grantReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Roles) == 0 {
		http.Error(w, "username and roles required", http.StatusBadRequest)
		return
	}
	if err := s.authorize(r, p, authz.ActionUserGrant, req.Username); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.users.Grant(r.Context(), req.Username, req.Roles)
	if err != nil {
		writeError(w, err)
		return
	}
	s.emit(r, p, "user.grant", req.Username, map[string]any{"roles": req.Roles})
	writeJSON(w, u)
}
