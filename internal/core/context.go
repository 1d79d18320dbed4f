package core

import "context"

type contextKey string

const ctxKeyActor contextKey = "actor"

// Actor identifies who made a change, for the mutation history.
type Actor struct {
	IP        string
	UserAgent string
}

// ContextWithActor attaches the requesting client to ctx.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, a)
}

// ActorFromContext returns the client attached to ctx, or the zero Actor.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(ctxKeyActor).(Actor)
	return a
}
