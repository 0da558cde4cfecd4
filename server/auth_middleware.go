package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/field-portal/auth"
	"github.com/jrsteele09/field-portal/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyPrincipal stores the authenticated *auth.Principal
	ContextKeyPrincipal ContextKey = "principal"
)

// PrincipalFromContext returns the caller attached by RequireTechnician or RequireAdmin.
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(*auth.Principal)
	return p, ok
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// authenticate resolves the bearer token, writing the 401 response itself when it fails.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid Authorization header", CodeUnauthorized)
		return nil, false
	}

	principal, err := s.auth.Authenticate(r.Context(), token)
	switch {
	case err == nil:
		return principal, true
	case errors.Is(err, auth.ErrSessionInvalidated):
		writeError(w, http.StatusUnauthorized, "Session invalidated by a newer login", CodeSessionInvalidated)
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized", CodeUnauthorized)
	default:
		log.Err(err).Str("path", r.URL.Path).Msg("authentication failed")
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
	}
	return nil, false
}

// RequireTechnician accepts bearer tokens backed by an active session record.
func (s *Server) RequireTechnician() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			principal, ok := s.authenticate(w, r)
			if !ok {
				return
			}
			if principal.IsAdmin() {
				writeError(w, http.StatusForbidden, "Technician session required", CodeForbidden)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyPrincipal, principal)))
		}
	}
}

// RequireAdmin accepts admin tokens whose user still exists.
func (s *Server) RequireAdmin() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			principal, ok := s.authenticate(w, r)
			if !ok {
				return
			}
			if !principal.IsAdmin() {
				writeError(w, http.StatusForbidden, "Admin access required", CodeForbidden)
				return
			}

			user, err := s.users.Get(r.Context(), principal.Subject)
			if errors.Is(err, users.ErrUserNotFound) || (err == nil && user.Blocked) {
				writeError(w, http.StatusUnauthorized, "Unauthorized", CodeUnauthorized)
				return
			}
			if err != nil {
				log.Err(err).Msg("failed to load admin user")
				writeError(w, http.StatusInternalServerError, "Internal server error", "")
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyPrincipal, principal)))
		}
	}
}
