package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/devopsevgeny/FinalProject/internal/users"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        *users.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.signer == nil {
		http.Error(w, "login disabled: no signing key configured", http.StatusServiceUnavailable)
		return
	}

	if !s.rlLoginIP.allow(getClientIP(r)) {
		tooMany(w, 60)
		return
	}

	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}

	if !s.rlLoginID.allow(strings.ToLower(req.Username)) {
		tooMany(w, 60)
		return
	}

	u, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.emit(r, nil, "auth.login.failed", req.Username, nil)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	tok, exp, err := s.signer.IssueToken(u.ID, u.Username, u.Email, u.Roles)
	if err != nil {
		http.Error(w, "token issue failed", http.StatusInternalServerError)
		return
	}
	if err := s.users.TouchLastLogin(r.Context(), u.Username); err != nil {
		s.logger.Printf("touch last_login failed for %s: %v", u.Username, err)
	}

	s.emit(r, nil, "auth.login", u.Username, map[string]any{"user_id": u.ID})
	writeJSON(w, loginResp{
		AccessToken: tok,
		TokenType:   "bearer",
		ExpiresAt:   exp,
		User:        u,
	})
}

func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := authPrincipal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"auth_type": s.resolver.Mode(),
		"principal": p,
	})
}
