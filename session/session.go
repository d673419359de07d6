package session

import "time"

// Credential is an opaque bearer token issued by the remote authority.
// Its expiry is server-defined and not known to the client; the manager
// never inspects a credential to make lifecycle decisions.
type Credential string

// Identity is the user record returned by the remote authority.
type Identity struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Active    bool      `json:"is_active"`
	Admin     bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Session pairs an identity with the credential that proves it to the
// remote authority. Identity and Credential are either both set or both
// empty; a session holding only one of the two is never exposed to
// consumers or written to the durable store.
type Session struct {
	Identity   *Identity
	Credential Credential
}

// Authenticated reports whether the session holds a complete
// identity/credential pair. Consumers must gate on this rather than on the
// presence of either field alone.
func (s Session) Authenticated() bool {
	return s.Identity != nil && s.Credential != ""
}
