package actor

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

func signedToken(t *testing.T, claims jwt.MapClaims, key []byte, method jwt.SigningMethod) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

type staticSessions struct {
	actors map[string]Actor
	err    error
}

func (s *staticSessions) Lookup(_ context.Context, sessionID string) (Actor, bool, error) {
	if s.err != nil {
		return Actor{}, false, s.err
	}
	a, ok := s.actors[sessionID]
	return a, ok, nil
}

// capture runs a request through the middleware and reports the actor the
// inner handler observed.
func capture(t *testing.T, sessions SessionLookup, decorate func(*http.Request)) (Actor, bool) {
	t.Helper()

	var got Actor
	var found bool
	inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, found = FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if decorate != nil {
		decorate(req)
	}
	mw := Middleware(testSigningKey, sessions, slog.Default())
	mw(inner).ServeHTTP(httptest.NewRecorder(), req)
	return got, found
}

func TestMiddlewareBearer(t *testing.T) {
	t.Run("valid token resolves the actor", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{
			"sub":  "u-42",
			"name": "Grace",
			"exp":  time.Now().Add(time.Hour).Unix(),
		}, testSigningKey, jwt.SigningMethodHS256)

		a, found := capture(t, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		require.True(t, found)
		assert.Equal(t, "u-42", a.ID)
		assert.Equal(t, "Grace", a.Name)
	})

	t.Run("wrong key leaves the request actorless", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"sub": "u-42"}, []byte("other-key"), jwt.SigningMethodHS256)
		_, found := capture(t, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		assert.False(t, found)
	})

	t.Run("expired token leaves the request actorless", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{
			"sub": "u-42",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}, testSigningKey, jwt.SigningMethodHS256)
		_, found := capture(t, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		assert.False(t, found)
	})

	t.Run("token without a subject is rejected", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"name": "Nobody"}, testSigningKey, jwt.SigningMethodHS256)
		_, found := capture(t, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		assert.False(t, found)
	})
}

func TestMiddlewareSession(t *testing.T) {
	sessions := &staticSessions{actors: map[string]Actor{
		"s-1": {ID: "u-7", Name: "Ada"},
	}}

	t.Run("known session resolves the actor", func(t *testing.T) {
		a, found := capture(t, sessions, func(r *http.Request) {
			r.Header.Set("X-Session-ID", "s-1")
		})
		require.True(t, found)
		assert.Equal(t, "u-7", a.ID)
	})

	t.Run("unknown session proceeds actorless", func(t *testing.T) {
		_, found := capture(t, sessions, func(r *http.Request) {
			r.Header.Set("X-Session-ID", "nope")
		})
		assert.False(t, found)
	})

	t.Run("lookup failure proceeds actorless", func(t *testing.T) {
		failing := &staticSessions{err: context.DeadlineExceeded}
		_, found := capture(t, failing, func(r *http.Request) {
			r.Header.Set("X-Session-ID", "s-1")
		})
		assert.False(t, found)
	})

	t.Run("bearer wins over session header", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"sub": "u-42", "name": "Grace"}, testSigningKey, jwt.SigningMethodHS256)
		a, found := capture(t, sessions, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
			r.Header.Set("X-Session-ID", "s-1")
		})
		require.True(t, found)
		assert.Equal(t, "u-42", a.ID)
	})
}

func TestMiddlewareNoCredentials(t *testing.T) {
	_, found := capture(t, nil, nil)
	assert.False(t, found)
}

func TestFromContext(t *testing.T) {
	_, found := FromContext(context.Background())
	assert.False(t, found)

	ctx := WithActor(context.Background(), Actor{ID: "u-1", Name: "Ada"})
	a, found := FromContext(ctx)
	require.True(t, found)
	assert.Equal(t, "Ada", a.Name)
}
