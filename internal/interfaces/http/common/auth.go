package common

import (
	"context"

	"github.com/sngm3741/survey-haven/api/internal/auth"
)

type contextKey string

const claimsContextKey contextKey = "authClaims"

// ContextWithClaims stores the verified token claims into context.
func ContextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts the verified token claims from context.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}
