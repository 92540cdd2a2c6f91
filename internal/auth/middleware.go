package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type ctxKey int

const principalKey ctxKey = 1

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

// Credential pulls the raw credential for the active mode out of a request:
// the X-API-Key header, or the Bearer token from Authorization. An empty
// string means the caller sent nothing usable.
func Credential(r *http.Request, mode Mode) string {
	switch mode {
	case ModeAPIKey:
		return r.Header.Get("X-API-Key")
	case ModeBearer:
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			return ""
		}
		return strings.TrimPrefix(h, "Bearer ")
	default:
		return ""
	}
}

// Required authenticates every request through the resolver and stores the
// principal in the request context. Failures are reported to the caller as a
// bare 401; the category stays server-side.
func Required(resolver Resolver, onFailure func(r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred := Credential(r, resolver.Mode())
			if cred == "" {
				if onFailure != nil {
					onFailure(r, ErrMalformed)
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			p, err := resolver.Resolve(cred)
			if err != nil {
				if onFailure != nil {
					onFailure(r, err)
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// MustPrincipal extracts the principal or fails, for handlers that run
// strictly behind Required.
func MustPrincipal(r *http.Request) (*Principal, error) {
	if p, ok := FromContext(r.Context()); ok {
		return p, nil
	}
	return nil, errors.New("auth: no principal in context")
}
