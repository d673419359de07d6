// Package store defines the durable key-value mirror of the client session:
// synchronous, local to the running client, and surviving process restarts.
package store

import "errors"

// Fixed keys the session manager persists under.
const (
	KeyCredential = "session.credential"
	KeyIdentity   = "session.identity"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("key not found")

// Repo is the durable store consumed by the session manager. All operations
// are synchronous and local. Delete is a no-op for missing keys.
type Repo interface {
	// Get retrieves the value for a key, or ErrNotFound.
	Get(key string) (string, error)

	// Set creates or overwrites the value for a key.
	Set(key, value string) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error
}
