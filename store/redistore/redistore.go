// Package redistore implements the durable session store on Redis, for
// clients that keep their state off the local filesystem.
package redistore

import (
	"context"
	"time"

	backend "github.com/redis/go-redis/v9"

	errs "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/store"
)

const (
	defaultPrefix  = "authclient:"
	defaultTimeout = 5 * time.Second
)

// Store implements store.Repo using Redis. The store.Repo surface is
// synchronous, so every operation runs under an internal timeout rather
// than a caller-provided context.
type Store struct {
	client  *backend.Client
	prefix  string
	timeout time.Duration
}

var _ store.Repo = (*Store)(nil)

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTimeout sets the per-operation timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.timeout = timeout
	}
}

// NewFromClient creates a Store from an existing Redis client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  defaultPrefix,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New creates a Store with its own Redis client.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

func (s *Store) Get(key string) (string, error) {
	ctx, cancel := s.operationContext()
	defer cancel()

	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err == backend.Nil {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", errs.Wrapf(err, "redis get %s", key)
	}
	return value, nil
}

func (s *Store) Set(key, value string) error {
	ctx, cancel := s.operationContext()
	defer cancel()

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return errs.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	ctx, cancel := s.operationContext()
	defer cancel()

	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return errs.Wrapf(err, "redis del %s", key)
	}
	return nil
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

func (s *Store) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
