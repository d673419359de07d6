package authority

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-client/session"
)

// Claims is the best-effort decoded payload of a bearer credential.
// Informational only: the remote authority stays the source of truth on
// validity and expiry, and the session manager never consults claims when
// deciding lifecycle transitions.
type Claims struct {
	Subject   string
	Username  string
	Admin     bool
	ExpiresAt time.Time
}

// DecodeClaims decodes the credential's JWT payload without verifying its
// signature. Useful for logging and debug tooling.
func DecodeClaims(cred session.Credential) (*Claims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(string(cred), jwt.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(err, "[DecodeClaims] parse credential")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("[DecodeClaims] unexpected claims type")
	}

	claims := &Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if username, ok := mapClaims["username"].(string); ok {
		claims.Username = username
	}
	if admin, ok := mapClaims["is_admin"].(bool); ok {
		claims.Admin = admin
	}
	return claims, nil
}
