package actor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionLookup resolves a session id to an actor, e.g. against redis.
type SessionLookup interface {
	Lookup(ctx context.Context, sessionID string) (Actor, bool, error)
}

// Middleware resolves the acting principal for a request and stores it in
// context. Resolution order: bearer JWT, then the X-Session-ID header via
// the optional session lookup. A request without a resolvable actor still
// proceeds — audit records then simply carry no actor.
func Middleware(signingKey []byte, sessions SessionLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if a, ok := actorFromBearer(r, signingKey); ok {
				next.ServeHTTP(w, r.WithContext(WithActor(ctx, a)))
				return
			}

			if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" && sessions != nil {
				a, found, err := sessions.Lookup(ctx, sessionID)
				if err != nil {
					logger.WarnContext(ctx, "session lookup failed", "error", err)
				} else if found {
					next.ServeHTTP(w, r.WithContext(WithActor(ctx, a)))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func actorFromBearer(r *http.Request, signingKey []byte) (Actor, bool) {
	authHeader := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return Actor{}, false
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return Actor{}, false
	}
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	if sub == "" {
		return Actor{}, false
	}
	return Actor{ID: sub, Name: name}, true
}
