package domain

import (
	"context"
	"errors"
)

// ErrForbidden marks a request that acts on another user's data
var ErrForbidden = errors.New("forbidden")

// Principal is the authenticated caller of a request
type Principal struct {
	UserID   int64
	Username string
}

type principalKey struct{}

// WithPrincipal stores the caller in the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller, if the request was authenticated
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// CheckOwner fails with ErrForbidden when an authenticated caller targets a
// different user. Requests without a principal pass; auth is optional.
func CheckOwner(ctx context.Context, userID int64) error {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.UserID == userID {
		return nil
	}
	return &Error{kind: ErrForbidden, msg: "Access denied"}
}

// IsForbidden reports whether err is an ownership failure
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
