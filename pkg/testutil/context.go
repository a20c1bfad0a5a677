package testutil

import (
	"net/http"

	"audittrail/internal/actor"
)

// WithActor attaches an acting user to the request context, simulating what
// the actor middleware does for an authenticated request.
func WithActor(req *http.Request, id, name string) *http.Request {
	ctx := actor.WithActor(req.Context(), actor.Actor{ID: id, Name: name})
	return req.WithContext(ctx)
}
