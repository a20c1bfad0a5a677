// Package actor answers "who is acting now". The recorder captures the
// actor's id and display name at write time and never re-resolves them,
// since users get renamed and deleted while audit history lives on.
package actor

import "context"

// Actor identifies the principal credited with an audited event.
type Actor struct {
	ID   string
	Name string
}

type ctxKey struct{}

var actorKey = ctxKey{}

// WithActor stores the acting principal in context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// FromContext returns the current actor. A missing actor is a normal state
// (system and background processes act without one), not an error.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}
