// Package authority implements the client of the remote authentication
// service: validating a bearer credential and issuing a new one.
package authority

import (
	"context"

	"github.com/jrsteele09/go-auth-client/session"
)

// Service mirrors the remote auth API the session manager consumes.
type Service interface {
	// Validate confirms a credential is currently accepted by the remote
	// service and returns the identity it belongs to. Failures carry one of
	// ErrRejected, ErrUnreachable, or ErrMalformedResponse in their chain.
	Validate(ctx context.Context, cred session.Credential) (*session.Identity, error)

	// Issue produces a new credential plus the identity it was issued for.
	Issue(ctx context.Context) (session.Credential, *session.Identity, error)
}

// Principal carries the credentials presented when issuing a new bearer
// token.
type Principal struct {
	Username string
	Password string
}

// PrincipalSource supplies the principal used by Issue. Keeping this a
// caller-provided dependency is deliberate: the client never hardcodes a
// username/password pair for refreshes.
type PrincipalSource func(ctx context.Context) (Principal, error)

// StaticPrincipal returns a PrincipalSource that always yields the same
// username/password pair.
func StaticPrincipal(username, password string) PrincipalSource {
	return func(context.Context) (Principal, error) {
		return Principal{Username: username, Password: password}, nil
	}
}
