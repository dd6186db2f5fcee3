package handlers

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

func identityFromContext(ctx context.Context) (identity, bool) {
	id, ok := ctx.Value(contextSubjectKey).(identity)
	if !ok || id.UserID == uuid.Nil {
		return identity{}, false
	}
	return id, true
}

// callerID returns the authenticated user, or uuid.Nil for anonymous requests.
func callerID(ctx context.Context) uuid.UUID {
	id, _ := identityFromContext(ctx)
	return id.UserID
}
