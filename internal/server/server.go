package server

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/time/rate"

	"github.com/devopsevgeny/FinalProject/internal/audit"
	"github.com/devopsevgeny/FinalProject/internal/auth"
	"github.com/devopsevgeny/FinalProject/internal/authz"
	"github.com/devopsevgeny/FinalProject/internal/crypto"
	"github.com/devopsevgeny/FinalProject/internal/store"
	"github.com/devopsevgeny/FinalProject/internal/users"
)

type Server struct {
	cfg Config

	mux      *http.ServeMux
	db       *bun.DB
	store    *store.Store
	users    users.Store
	resolver auth.Resolver
	signer   *auth.JWTSigner
	audit    audit.Emitter
	logger   *log.Logger

	rlLoginIP *multiLimiter
	rlLoginID *multiLimiter
}

func New(ctx context.Context, cfg Config) (*Server, error) {
	cfg.setDefaults()

	key, err := crypto.KeyFromHex(cfg.MasterKeyHex)
	if err != nil {
		return nil, errors.New("server: MasterKeyHex must be 64 hex chars (32 bytes)")
	}
	engine, err := crypto.NewEngine(key, cfg.Alg)
	if err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return nil, err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	accounts := users.NewBunStore(db)
	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		db:     db,
		store:  store.New(db, engine),
		users:  accounts,
		logger: log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile),
	}

	switch cfg.AuthType {
	case auth.ModeAPIKey:
		s.resolver, err = auth.NewStaticKeyResolver(cfg.APIKey)
	case auth.ModeBearer:
		s.resolver, err = auth.NewTokenResolver(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	default:
		err = errors.New("server: AuthType must be API_KEY or BEARER")
	}
	if err != nil {
		return nil, err
	}
	if cfg.JWTSigningKey != "" {
		s.signer = auth.NewJWTSigner([]byte(cfg.JWTSigningKey), cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	}

	if err := s.store.Init(ctx); err != nil {
		return nil, err
	}
	if err := accounts.Init(ctx); err != nil {
		return nil, err
	}
	sink := audit.NewBunSink(db)
	if err := sink.Init(ctx); err != nil {
		return nil, err
	}
	s.audit = sink

	perWindow := func(n int, window time.Duration) float64 { return float64(n) / window.Seconds() }
	s.rlLoginIP = newMultiLimiter(rate.Limit(perWindow(10, time.Minute)), 10, 1*time.Hour)
	s.rlLoginID = newMultiLimiter(rate.Limit(perWindow(5, time.Minute)), 5, 1*time.Hour)

	if err := s.ensureSeedUsers(ctx); err != nil {
		return nil, err
	}

	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Printf("panic: %v", rec)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	s.addDefaultHeaders(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if s.isPublic(r.URL.Path) {
		s.mux.ServeHTTP(w, r)
		return
	}
	handler := auth.Required(s.resolver, s.onAuthFailure)(s.mux)
	handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s
}

func (s *Server) onAuthFailure(r *http.Request, err error) {
	// The category stays in the log; the client only ever sees 401.
	s.logger.Printf("auth failed: %s %s: %v", r.Method, r.URL.Path, err)
}

func (s *Server) isPublic(path string) bool {
	switch path {
	case "/health", "/healthz", "/auth/login":
		return true
	default:
		return false
	}
}

func (s *Server) addDefaultHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key, X-Actor-Id")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
}

// authorize enforces the role policy for token principals. Static-key mode
// has a single implicit operator identity with no role claims, so policy
// checks do not apply there. Denials are audited, not just rejected.
func (s *Server) authorize(r *http.Request, p *auth.Principal, action, target string) error {
	if s.resolver.Mode() == auth.ModeAPIKey {
		return nil
	}
	if err := authz.Allow(p, action); err != nil {
		s.emit(r, p, "authz.denied", target, map[string]any{"action": action})
		return err
	}
	return nil
}

// emit records an audit event, attributing it to the resolved actor. Audit
// failures are logged but never fail the request that triggered them.
func (s *Server) emit(r *http.Request, p *auth.Principal, action, target string, meta map[string]any) {
	actor, err := s.actorID(r, p)
	if err != nil {
		actor = s.cfg.SystemActorID
	}
	e := audit.Event{
		ActorID:  actor,
		Action:   action,
		Target:   target,
		Metadata: meta,
		At:       time.Now().UTC(),
	}
	if p != nil {
		e.ActorSubject = p.Subject
	}
	if err := s.audit.Emit(r.Context(), e); err != nil {
		s.logger.Printf("audit emit failed: %v", err)
	}
}

func (s *Server) ensureSeedUsers(ctx context.Context) error {
	for _, seed := range s.cfg.SeedUsers {
		if strings.TrimSpace(seed.Username) == "" || strings.TrimSpace(seed.Password) == "" {
			continue
		}
		if _, err := s.users.FindByUsername(ctx, seed.Username); err == nil {
			continue
		}
		u, err := s.users.Add(ctx, seed.Username, seed.Email, seed.Password, seed.Roles)
		if err != nil {
			if errors.Is(err, users.ErrExists) {
				continue
			}
			return err
		}
		s.logger.Printf("seeded user %s (%s)", u.Username, strings.Join(u.Roles, ","))
	}
	return nil
}
