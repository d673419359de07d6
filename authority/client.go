package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-auth-client/session"
)

const (
	defaultAPIPrefix   = "/api/v1"
	defaultHTTPTimeout = 10 * time.Second
)

// Client is the HTTP implementation of Service. It talks to the auth
// routes of the remote service: GET {base}{prefix}/auth/me to validate a
// credential and POST {base}{prefix}/auth/login to issue a new one.
type Client struct {
	baseURL    string
	apiPrefix  string
	httpClient *http.Client
	principals PrincipalSource
	logger     zerolog.Logger
}

var _ Service = (*Client)(nil)

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client. Timeout semantics are
// whatever this client enforces; the authority client imposes none itself.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIPrefix sets the API path prefix the auth routes are mounted under.
func WithAPIPrefix(prefix string) ClientOption {
	return func(c *Client) {
		c.apiPrefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithPrincipalSource sets the source of the principal presented by Issue.
// A client without one can still Validate, but Issue will fail.
func WithPrincipalSource(source PrincipalSource) ClientOption {
	return func(c *Client) {
		c.principals = source
	}
}

// WithLogger sets the logger for request-level debug logging.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient initializes a new authority Client for the given base URL.
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[authority.NewClient] baseURL is required")
	}

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiPrefix:  defaultAPIPrefix,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     zerolog.Nop(),
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// identityResponse is the wire shape of the service's user record.
type identityResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Active    bool   `json:"is_active"`
	Admin     bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

// tokenResponse is the wire shape of a freshly issued credential.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Validate asks the remote service whether the credential is currently
// accepted, and returns the identity it belongs to.
func (c *Client) Validate(ctx context.Context, cred session.Credential) (*session.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/auth/me"), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Validate] build request")
	}

	resp, err := c.bearerClient(cred).Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrUnreachable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Wrapf(ErrRejected, "[Client.Validate] status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Wrapf(ErrUnreachable, "[Client.Validate] status %d", resp.StatusCode)
	}

	var wire identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, errors.Wrap(ErrMalformedResponse, err.Error())
	}
	identity, err := wire.toIdentity()
	if err != nil {
		return nil, errors.Wrap(ErrMalformedResponse, err.Error())
	}

	c.logger.Debug().Str("username", identity.Username).Msg("credential validated")
	return identity, nil
}

// Issue obtains a fresh credential for the configured principal, then
// resolves the identity it was issued for.
func (c *Client) Issue(ctx context.Context) (session.Credential, *session.Identity, error) {
	if c.principals == nil {
		return "", nil, errors.New("[Client.Issue] no principal source configured")
	}
	principal, err := c.principals(ctx)
	if err != nil {
		return "", nil, errors.Wrap(err, "[Client.Issue] principal source")
	}

	body, err := json.Marshal(map[string]string{
		"username": principal.Username,
		"password": principal.Password,
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "[Client.Issue] marshal login request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/auth/login"), bytes.NewReader(body))
	if err != nil {
		return "", nil, errors.Wrap(err, "[Client.Issue] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, errors.Wrap(ErrUnreachable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", nil, errors.Wrapf(ErrRejected, "[Client.Issue] status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", nil, errors.Wrapf(ErrUnreachable, "[Client.Issue] status %d", resp.StatusCode)
	}

	var wire tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return "", nil, errors.Wrap(ErrMalformedResponse, err.Error())
	}
	if wire.AccessToken == "" || !strings.EqualFold(wire.TokenType, "bearer") {
		return "", nil, errors.Wrapf(ErrMalformedResponse, "[Client.Issue] token_type %q", wire.TokenType)
	}

	cred := session.Credential(wire.AccessToken)
	identity, err := c.Validate(ctx, cred)
	if err != nil {
		return "", nil, errors.Wrap(err, "[Client.Issue] resolve identity")
	}

	c.logger.Debug().Str("username", identity.Username).Int64("expires_in", wire.ExpiresIn).Msg("credential issued")
	return cred, identity, nil
}

// bearerClient wraps the configured HTTP client with an oauth2 transport
// that attaches the credential as a bearer token.
func (c *Client) bearerClient(cred session.Credential) *http.Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: string(cred),
		TokenType:   "Bearer",
	})
	return &http.Client{
		Transport: &oauth2.Transport{Source: source, Base: c.httpClient.Transport},
		Timeout:   c.httpClient.Timeout,
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + c.apiPrefix + path
}

func (w identityResponse) toIdentity() (*session.Identity, error) {
	if w.ID == 0 || w.Username == "" {
		return nil, errors.New("identity missing id or username")
	}

	// The service emits ISO 8601 timestamps, with or without a zone offset.
	var createdAt time.Time
	if w.CreatedAt != "" {
		var err error
		createdAt, err = time.Parse(time.RFC3339, w.CreatedAt)
		if err != nil {
			createdAt, err = time.Parse("2006-01-02T15:04:05", w.CreatedAt)
			if err != nil {
				return nil, errors.Wrap(err, "parse created_at")
			}
		}
	}

	return &session.Identity{
		ID:        w.ID,
		Username:  w.Username,
		Email:     w.Email,
		Active:    w.Active,
		Admin:     w.Admin,
		CreatedAt: createdAt,
	}, nil
}
