package auth

import (
	"context"
	"time"
)

type ctxKey string

const claimsKey ctxKey = "authClaims"

// Claims is the verified token identity carried through the request context.
// Roles and permissions are deliberately not part of it; authorization reads
// the persisted role graph at check time.
type Claims struct {
	Subject   string
	JTI       string
	ExpiresAt time.Time
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func FromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(claimsKey).(Claims); ok {
		return v
	}
	return Claims{}
}

// Subject returns the authenticated user id, or "" when unauthenticated.
func Subject(ctx context.Context) string {
	return FromContext(ctx).Subject
}
