package config

import (
	"strconv"
	"time"
)

type AuthorityConfig interface {
	GetAuthBaseURL() string
	GetAPIPrefix() string
	GetHTTPTimeout() time.Duration
	GetUsername() string
	GetPassword() string
}

type Authority struct{}

var _ AuthorityConfig = Authority{}

// GetAuthBaseURL returns the base URL of the remote authentication service
// (e.g. "https://api.example.com"). Auth routes are expected under
// {base}{prefix}/auth.
func (Authority) GetAuthBaseURL() string {
	return GetEnv("AUTH_BASE_URL", "http://localhost:8000")
}

func (Authority) GetAPIPrefix() string {
	return GetEnv("AUTH_API_PREFIX", "/api/v1")
}

func (Authority) GetHTTPTimeout() time.Duration {
	seconds, err := strconv.Atoi(GetEnv("AUTH_HTTP_TIMEOUT", "10"))
	if err != nil || seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

// GetUsername returns the principal used when refreshing a credential
// without an interactive login. Empty means refresh is unavailable.
func (Authority) GetUsername() string {
	return GetEnv("AUTH_USERNAME", "")
}

func (Authority) GetPassword() string {
	return GetEnv("AUTH_PASSWORD", "")
}
