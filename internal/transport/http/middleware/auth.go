package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"ems/internal/domain/auth"
	"ems/internal/requestctx"
	"ems/internal/transport/http/shared"
)

type actorKey struct{}

// SessionChecker confirms the server-side session behind a token is still live.
type SessionChecker interface {
	SessionActive(ctx context.Context, userID, sessionID string) (bool, error)
}

// Auth turns a bearer token into an auth.Actor on the request context.
// Anonymous requests continue untouched so public routes keep working; a
// token that was sent but not honoured is flagged in WWW-Authenticate.
func Auth(secret string, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := resolveActor(r.Context(), secret, sessions, token)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				next.ServeHTTP(w, r)
				return
			}
			requestctx.SetUserID(r.Context(), actor.UserID)
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return token, true
}

// resolveActor validates the token signature, then asks sessions whether the
// login behind it was revoked. A failed lookup counts as revoked.
func resolveActor(ctx context.Context, secret string, sessions SessionChecker, token string) (auth.Actor, bool) {
	claims, err := auth.ParseToken(secret, token)
	if err != nil {
		return auth.Actor{}, false
	}
	if sessions != nil {
		active, err := sessions.SessionActive(ctx, claims.UserID, claims.SessionID)
		if err != nil {
			slog.Warn("session lookup failed", "userId", claims.UserID, "err", err)
			return auth.Actor{}, false
		}
		if !active {
			return auth.Actor{}, false
		}
	}
	return auth.Actor{
		UserID:     claims.UserID,
		SessionID:  claims.SessionID,
		Role:       claims.RoleName,
		EmployeeID: claims.EmployeeID,
		Email:      claims.Email,
	}, true
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r.Context()); !ok {
			shared.Unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func GetActor(ctx context.Context) (auth.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(auth.Actor)
	return actor, ok && actor.Authenticated()
}
