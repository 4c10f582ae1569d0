// Package owner carries the id of the acting account through a request.
package owner

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUnauthenticated is returned for mutations without an acting owner
var ErrUnauthenticated = errors.New("unauthenticated")

type contextKey struct{}

func WithID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns uuid.Nil when no owner is attached
func FromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(contextKey{}).(uuid.UUID)
	return id
}
