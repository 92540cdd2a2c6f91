package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/devopsevgeny/FinalProject/internal/auth"
	"github.com/devopsevgeny/FinalProject/internal/platform"
	"github.com/devopsevgeny/FinalProject/internal/server"
)

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	if err := platform.DisableCoreDumps(); err != nil {
		log.Printf("warning: could not disable core dumps: %v", err)
	}

	cfg := configFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (auth mode %s)", cfg.Addr, cfg.AuthType)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	case <-ctx.Done():
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}

func configFromEnv() server.Config {
	cfg := server.Config{
		Addr:          os.Getenv("ADDR"),
		DSN:           os.Getenv("DB_DSN"),
		MasterKeyHex:  os.Getenv("DATA_KEY_HEX"),
		Alg:           os.Getenv("AEAD_ALG"),
		AuthType:      auth.Mode(os.Getenv("AUTH_TYPE")),
		APIKey:        os.Getenv("API_KEY"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:     os.Getenv("JWT_ISSUER"),
		JWTAudience:   os.Getenv("JWT_AUDIENCE"),
		SystemActorID: os.Getenv("SYSTEM_ACTOR_ID"),
	}
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("TOKEN_TTL: %v", err)
		}
		cfg.TokenTTL = ttl
	}
	if u := os.Getenv("ADMIN_USERNAME"); u != "" {
		cfg.SeedUsers = append(cfg.SeedUsers, server.SeedUser{
			Username: u,
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
			Roles:    []string{auth.RoleGlobalAdmin},
		})
	}
	return cfg
}
