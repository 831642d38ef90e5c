package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type (
	actorKey     struct{}
	storeKey     struct{}
	requestIDKey struct{}
)

// WithActor stores the authenticated caller on ctx.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller seeded by Auth. Actors without an id
// or with an unknown role are treated as absent.
func ActorFromContext(ctx context.Context) (auth.Actor, bool) {
	if ctx == nil {
		return auth.Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(auth.Actor)
	if !ok || !actor.Valid() {
		return auth.Actor{}, false
	}
	return actor, true
}

// WithStoreID records the seller's store from the access token.
func WithStoreID(ctx context.Context, storeID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, storeKey{}, storeID)
}

// UserIDFromContext is the caller's id as text, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return string(actor.Role)
	}
	return ""
}

func StoreIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(storeKey{}).(uuid.UUID); ok && id != uuid.Nil {
		return id.String()
	}
	return ""
}

// RequestActor returns the authenticated actor or an unauthorized error.
func RequestActor(r *http.Request) (auth.Actor, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor, nil
}
