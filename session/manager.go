// Package session implements the client-side session lifecycle: the
// in-memory identity/credential pair, its durable local mirror, and the
// startup protocol that reconciles the two with the remote authority.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	errs "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/store"
)

const defaultEventBuffer = 16

// errStale marks a state change that lost the race against a newer
// login/logout and must be discarded rather than applied.
var errStale = errors.New("stale session generation")

// Authority is the manager's view of the remote authentication service.
// Validate confirms a credential is currently accepted and returns the
// authority's view of the identity it belongs to. Issue produces a new
// credential for whatever principal the implementation was configured with.
type Authority interface {
	Validate(ctx context.Context, cred Credential) (*Identity, error)
	Issue(ctx context.Context) (Credential, *Identity, error)
}

// Deps holds the collaborator dependencies for the Manager.
type Deps struct {
	Store     store.Repo // Durable local mirror of the session
	Authority Authority  // Remote authentication service
}

// Manager owns the client session. Consumers read the session through
// Current and mutate it only through Initialize, Login, Logout, and
// Refresh; they never touch the durable store directly.
//
// Every login and logout advances an internal generation counter. In-flight
// refreshes capture the generation at call time and discard their result if
// it has moved, so a slow refresh cannot resurrect a session the user has
// already cleared.
type Manager struct {
	deps Deps

	mu          sync.Mutex
	session     Session
	loading     bool
	initialized bool
	generation  uint64

	events  chan Event
	logger  zerolog.Logger
	metrics *metrics
	nowTime func() time.Time // nowTime function (injectable for testing)
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for lifecycle and failure logging.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithMetrics registers session lifecycle counters with the given registerer.
func WithMetrics(reg prometheus.Registerer) ManagerOption {
	return func(m *Manager) {
		m.metrics = newMetrics(reg)
	}
}

// WithEventBuffer sets the event channel buffer size.
func WithEventBuffer(size int) ManagerOption {
	return func(m *Manager) {
		m.events = make(chan Event, size)
	}
}

// New initializes a new Manager with required dependencies. Optional
// configuration can be provided via options (e.g. WithNowTime for testing).
func New(deps Deps, options ...ManagerOption) (*Manager, error) {
	if deps.Store == nil {
		return nil, errors.New("[session.New] Store is required")
	}
	if deps.Authority == nil {
		return nil, errors.New("[session.New] Authority is required")
	}

	manager := &Manager{
		deps:    deps,
		events:  make(chan Event, defaultEventBuffer),
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(manager)
	}

	return manager, nil
}

// Initialize runs the startup reconciliation: it seeds the in-memory
// session from the durable store, checks the stored credential against the
// remote authority, and falls back to Refresh when the credential is no
// longer accepted. Loading brackets the whole window, so consumers can
// defer identity-dependent work until it reports false.
//
// Initialize must be called exactly once, before consumers read Current.
// Validation and refresh failures are absorbed into the anonymous state;
// only durable store failures are returned.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return errors.New("[Manager.Initialize] already initialized")
	}
	m.initialized = true
	m.loading = true
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	persisted, err := m.loadPersisted()
	if err != nil {
		return errors.Wrap(err, "[Manager.Initialize] load persisted session")
	}
	if persisted == nil {
		m.logger.Debug().Msg("no persisted session, starting anonymous")
		return nil
	}

	identity, err := m.deps.Authority.Validate(ctx, persisted.Credential)
	if err != nil {
		m.metrics.validation(false)
		m.emit(EventValidateFailed, err)
		m.Refresh(ctx)
		return nil
	}
	m.metrics.validation(true)

	// Prefer the authority's fresh view of the identity over the mirror.
	if identity == nil {
		identity = persisted.Identity
	}
	if err := m.apply(gen, Session{Identity: identity, Credential: persisted.Credential}, false); err != nil {
		if errs.Is(err, errStale) {
			m.logger.Debug().Msg("session changed during startup validation, keeping newer state")
			return nil
		}
		return errors.Wrap(err, "[Manager.Initialize] adopt persisted session")
	}
	m.emit(EventValidated, nil)
	return nil
}

// Login installs an already-issued credential and its identity as the
// current session. The durable mirror is written before Login returns;
// there is no window where a restart would observe the previous session.
func (m *Manager) Login(identity *Identity, cred Credential) error {
	if identity == nil {
		return errors.New("[Manager.Login] identity is required")
	}
	if cred == "" {
		return errors.New("[Manager.Login] credential is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := Session{Identity: identity, Credential: cred}
	if err := m.persistLocked(s); err != nil {
		return errors.Wrap(err, "[Manager.Login] persist session")
	}
	m.session = s
	m.generation++
	m.metrics.login()
	m.emit(EventLoggedIn, nil)
	return nil
}

// Logout clears the session and deletes the durable mirror. It is
// idempotent: logging out while anonymous leaves the same empty state.
// Logout also invalidates any in-flight refresh, so a late refresh result
// cannot resurrect the session.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logoutLocked()
}

// Refresh asks the authority to issue a fresh credential and, on success,
// applies it exactly like a login: session set, mirror persisted. On any
// failure the session is cleared so a stale credential never survives a
// failed refresh. Refresh reports its outcome as a boolean and never lets
// an error escape; failures surface on the event stream instead.
func (m *Manager) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	cred, identity, err := m.deps.Authority.Issue(ctx)
	if err == nil && (cred == "" || identity == nil) {
		err = errors.New("authority issued an incomplete session")
	}
	if err != nil {
		return m.failRefresh(gen, err)
	}

	switch err := m.apply(gen, Session{Identity: identity, Credential: cred}, true); {
	case errs.Is(err, errStale):
		m.emit(EventStaleRefreshDiscarded, nil)
		return false
	case err != nil:
		return m.failRefresh(gen, err)
	}

	m.metrics.refresh(true)
	m.metrics.login()
	m.emit(EventRefreshed, nil)
	return true
}

// Current returns a snapshot of the session. During startup, consumers
// should wait for Loading to report false before trusting the snapshot.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Loading reports whether the startup reconciliation is still running.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// apply installs a session unless the generation has moved since it was
// captured. With persist set, the durable mirror is written first, so a
// persistence failure leaves the in-memory state untouched.
func (m *Manager) apply(gen uint64, s Session, persist bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return errStale
	}
	if persist {
		if err := m.persistLocked(s); err != nil {
			return err
		}
	}
	m.session = s
	return nil
}

// failRefresh records a refresh failure and forces the anonymous state,
// unless the session has already moved on to a newer generation.
func (m *Manager) failRefresh(gen uint64, cause error) bool {
	m.metrics.refresh(false)
	m.emit(EventRefreshFailed, cause)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		m.emit(EventStaleRefreshDiscarded, nil)
		return false
	}
	if err := m.logoutLocked(); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear session after refresh failure")
	}
	return false
}

func (m *Manager) logoutLocked() error {
	m.generation++
	wasAuthenticated := m.session.Authenticated()
	m.session = Session{}
	if err := m.clearPersisted(); err != nil {
		return errors.Wrap(err, "[Manager.Logout] clear persisted session")
	}
	if wasAuthenticated {
		m.metrics.logout()
		m.emit(EventLoggedOut, nil)
	}
	return nil
}

// loadPersisted reads the durable mirror. A missing session yields (nil,
// nil). Partial or corrupt state is not a legal session at rest, so it is
// cleared and treated as absent.
func (m *Manager) loadPersisted() (*Session, error) {
	cred, credErr := m.deps.Store.Get(store.KeyCredential)
	identityJSON, idErr := m.deps.Store.Get(store.KeyIdentity)

	switch {
	case errs.Is(credErr, store.ErrNotFound) && errs.Is(idErr, store.ErrNotFound):
		return nil, nil
	case credErr != nil && !errs.Is(credErr, store.ErrNotFound):
		return nil, errors.Wrap(credErr, "read persisted credential")
	case idErr != nil && !errs.Is(idErr, store.ErrNotFound):
		return nil, errors.Wrap(idErr, "read persisted identity")
	case credErr != nil || idErr != nil:
		m.logger.Warn().Msg("partial persisted session, discarding")
		return nil, m.clearPersisted()
	}

	var identity Identity
	if err := json.Unmarshal([]byte(identityJSON), &identity); err != nil {
		m.logger.Warn().Err(err).Msg("corrupt persisted identity, discarding")
		return nil, m.clearPersisted()
	}
	return &Session{Identity: &identity, Credential: Credential(cred)}, nil
}

func (m *Manager) persistLocked(s Session) error {
	identityJSON, err := json.Marshal(s.Identity)
	if err != nil {
		return errors.Wrap(err, "marshal identity")
	}
	if err := m.deps.Store.Set(store.KeyCredential, string(s.Credential)); err != nil {
		return errors.Wrap(err, "persist credential")
	}
	if err := m.deps.Store.Set(store.KeyIdentity, string(identityJSON)); err != nil {
		return errors.Wrap(err, "persist identity")
	}
	return nil
}

func (m *Manager) clearPersisted() error {
	if err := m.deps.Store.Delete(store.KeyCredential); err != nil {
		return errors.Wrap(err, "delete persisted credential")
	}
	if err := m.deps.Store.Delete(store.KeyIdentity); err != nil {
		return errors.Wrap(err, "delete persisted identity")
	}
	return nil
}
