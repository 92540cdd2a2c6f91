package server

import "net/http"

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/auth/login", s.handleLogin)
	s.mux.HandleFunc("/whoami", s.handleWhoami)

	s.mux.HandleFunc("/config/", s.handleConfig)
	s.mux.HandleFunc("/secret/", s.handleSecret)

	s.mux.HandleFunc("/users", s.handleUsers)
	s.mux.HandleFunc("/users/grant", s.handleGrant)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
