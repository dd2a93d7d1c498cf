package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskerhq/tasker/internal/model"
	"github.com/taskerhq/tasker/internal/service"
)

type contextKeyAuth string

// AuthPrincipalKey is the context key for the authenticated principal.
const AuthPrincipalKey contextKeyAuth = "auth_principal"

// PrincipalKind discriminates the three credential generations this API
// supports.
type PrincipalKind string

const (
	PrincipalUser    PrincipalKind = "user"
	PrincipalSession PrincipalKind = "session"
	PrincipalAPIKey  PrincipalKind = "api_key"
)

// Principal is the resolved identity attached to an authenticated request.
// Exactly one of User, Session, or APIKey is non-nil, matching Kind.
type Principal struct {
	Kind    PrincipalKind
	User    *model.User
	Session *model.Session
	APIKey  *model.APIKey
}

// RequireUser returns middleware that resolves an Authorization Bearer token
// into an active user principal. Every failure mode (missing header, bad
// signature, expired, unknown or inactive user) produces the same 401; the
// precise reason goes to the debug log only.
func RequireUser(authSvc *service.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, "Authentication required")
				return
			}

			user, err := authSvc.ResolveUser(r.Context(), token)
			if err != nil {
				logger.Debug("user token rejected",
					"reason", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, "Could not validate credentials")
				return
			}

			principal := &Principal{Kind: PrincipalUser, User: user}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
		})
	}
}

// RequireSession returns middleware for the legacy anonymous-session flow:
// the bearer token carries a session_id claim and resolves without any
// store lookup.
func RequireSession(authSvc *service.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, "Authentication required")
				return
			}

			session, err := authSvc.ResolveSession(token)
			if err != nil {
				logger.Debug("session token rejected",
					"reason", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, "Could not validate credentials")
				return
			}

			principal := &Principal{Kind: PrincipalSession, Session: session}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAPIKey returns middleware that resolves the X-API-Key header into
// an API key principal. Revoked and unknown keys fail identically.
func RequireAPIKey(authSvc *service.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireAPIKey(authSvc, logger, false)
}

// OptionalAPIKey behaves like RequireAPIKey, except a request with no
// X-API-Key header at all passes through unauthenticated. A key that is
// present but invalid is still rejected. Used by endpoints transitioning
// from open to authenticated access.
func OptionalAPIKey(authSvc *service.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireAPIKey(authSvc, logger, true)
}

func requireAPIKey(authSvc *service.AuthService, logger *slog.Logger, optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				if optional {
					next.ServeHTTP(w, r)
					return
				}
				writeAuthError(w, "Authentication required. Provide the X-API-Key header.")
				return
			}

			key, err := authSvc.VerifyAPIKey(r.Context(), rawKey)
			if err != nil {
				logger.Debug("api key rejected",
					"reason", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, "Could not validate credentials")
				return
			}

			principal := &Principal{Kind: PrincipalAPIKey, APIKey: key}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil for an unauthenticated request.
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

// UserFromContext returns the authenticated user, or nil if the request was
// not authenticated as a user.
func UserFromContext(ctx context.Context) *model.User {
	if p := GetPrincipal(ctx); p != nil && p.Kind == PrincipalUser {
		return p.User
	}
	return nil
}

// SessionFromContext returns the resolved legacy session, or nil.
func SessionFromContext(ctx context.Context) *model.Session {
	if p := GetPrincipal(ctx); p != nil && p.Kind == PrincipalSession {
		return p.Session
	}
	return nil
}

func withPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, AuthPrincipalKey, p)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return token, token != ""
}

// writeAuthError rejects the request with a single uniform 401 shape. The
// WWW-Authenticate header hints the client to re-authenticate; the body
// never distinguishes why validation failed.
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":401,"message":"` + message + `"}}`))
}
