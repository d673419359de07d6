package session_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-client/authority"
	"github.com/jrsteele09/go-auth-client/authority/authorityfakes"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/store"
	"github.com/jrsteele09/go-auth-client/store/repofakes"
)

const (
	testCredential    = "credential-1"
	testNewCredential = "credential-2"
)

// testFixture holds all test dependencies
type testFixture struct {
	store     *repofakes.FakeStore
	authority *authorityfakes.FakeService
	manager   *session.Manager
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T, options ...session.ManagerOption) *testFixture {
	t.Helper()

	fakeStore := repofakes.NewFakeStore()
	fakeAuthority := authorityfakes.NewFakeService()

	manager, err := session.New(session.Deps{
		Store:     fakeStore,
		Authority: fakeAuthority,
	}, options...)
	require.NoError(t, err)

	return &testFixture{
		store:     fakeStore,
		authority: fakeAuthority,
		manager:   manager,
	}
}

func testIdentity(id int64, username string) *session.Identity {
	return &session.Identity{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		Active:   true,
	}
}

// seedPersisted writes an identity/credential pair into the fake store the
// way the manager persists them.
func (f *testFixture) seedPersisted(t *testing.T, identity *session.Identity, cred string) {
	t.Helper()

	identityJSON, err := json.Marshal(identity)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(store.KeyCredential, cred))
	require.NoError(t, f.store.Set(store.KeyIdentity, string(identityJSON)))
}

func (f *testFixture) requireStoreEmpty(t *testing.T) {
	t.Helper()

	_, err := f.store.Get(store.KeyCredential)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.store.Get(store.KeyIdentity)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func (f *testFixture) requireStoreHolds(t *testing.T, identity *session.Identity, cred string) {
	t.Helper()

	storedCred, err := f.store.Get(store.KeyCredential)
	require.NoError(t, err)
	require.Equal(t, cred, storedCred)

	storedIdentityJSON, err := f.store.Get(store.KeyIdentity)
	require.NoError(t, err)
	var storedIdentity session.Identity
	require.NoError(t, json.Unmarshal([]byte(storedIdentityJSON), &storedIdentity))
	require.Equal(t, *identity, storedIdentity)
}

func drainEvents(m *session.Manager) []session.Event {
	var events []session.Event
	for {
		select {
		case ev := <-m.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func requireEvent(t *testing.T, events []session.Event, kind session.EventKind) session.Event {
	t.Helper()

	for _, ev := range events {
		if ev.Kind == kind {
			return ev
		}
	}
	t.Fatalf("no %q event in %v", kind, events)
	return session.Event{}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := session.New(session.Deps{Authority: authorityfakes.NewFakeService()})
	require.Error(t, err)

	_, err = session.New(session.Deps{Store: repofakes.NewFakeStore()})
	require.Error(t, err)
}

func TestSessionAuthenticated(t *testing.T) {
	require.False(t, session.Session{}.Authenticated())
	require.False(t, session.Session{Credential: testCredential}.Authenticated())
	require.False(t, session.Session{Identity: testIdentity(1, "john")}.Authenticated())
	require.True(t, session.Session{
		Identity:   testIdentity(1, "john"),
		Credential: testCredential,
	}.Authenticated())
}

func TestInitializeWithEmptyStore(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.manager.Initialize(context.Background()))

	require.False(t, f.manager.Loading())
	require.False(t, f.manager.Current().Authenticated())
	require.Zero(t, f.authority.ValidateCalls())
	require.Zero(t, f.authority.IssueCalls())
}

func TestInitializeAdoptsValidatedSession(t *testing.T) {
	f := setupTestFixture(t)
	identity := testIdentity(1, "john.doe")
	f.seedPersisted(t, identity, testCredential)

	f.authority.ValidateFunc = func(_ context.Context, cred session.Credential) (*session.Identity, error) {
		require.Equal(t, session.Credential(testCredential), cred)
		return identity, nil
	}

	require.NoError(t, f.manager.Initialize(context.Background()))

	current := f.manager.Current()
	require.True(t, current.Authenticated())
	require.Equal(t, identity, current.Identity)
	require.Equal(t, session.Credential(testCredential), current.Credential)
	require.Zero(t, f.authority.IssueCalls())

	requireEvent(t, drainEvents(f.manager), session.EventValidated)
}

func TestInitializeRecoversWithRefreshWhenRejected(t *testing.T) {
	f := setupTestFixture(t)
	f.seedPersisted(t, testIdentity(1, "john.doe"), "expired")

	newIdentity := testIdentity(2, "jane.doe")
	f.authority.ValidateFunc = func(context.Context, session.Credential) (*session.Identity, error) {
		return nil, authority.ErrRejected
	}
	f.authority.IssueFunc = func(context.Context) (session.Credential, *session.Identity, error) {
		return testNewCredential, newIdentity, nil
	}

	require.NoError(t, f.manager.Initialize(context.Background()))

	current := f.manager.Current()
	require.Equal(t, newIdentity, current.Identity)
	require.Equal(t, session.Credential(testNewCredential), current.Credential)
	f.requireStoreHolds(t, newIdentity, testNewCredential)

	events := drainEvents(f.manager)
	requireEvent(t, events, session.EventValidateFailed)
	requireEvent(t, events, session.EventRefreshed)
}

func TestInitializeClearsSessionWhenRefreshAlsoFails(t *testing.T) {
	f := setupTestFixture(t)
	f.seedPersisted(t, testIdentity(1, "john.doe"), "expired")

	f.authority.ValidateFunc = func(context.Context, session.Credential) (*session.Identity, error) {
		return nil, authority.ErrRejected
	}
	f.authority.IssueFunc = func(context.Context) (session.Credential, *session.Identity, error) {
		return "", nil, authority.ErrUnreachable
	}

	require.NoError(t, f.manager.Initialize(context.Background()))

	require.False(t, f.manager.Loading())
	require.False(t, f.manager.Current().Authenticated())
	f.requireStoreEmpty(t)

	failure := requireEvent(t, drainEvents(f.manager), session.EventRefreshFailed)
	require.ErrorIs(t, failure.Err, authority.ErrUnreachable)
}

func TestInitializeTreatsPartialStateAsAbsent(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(store.KeyCredential, testCredential))

	require.NoError(t, f.manager.Initialize(context.Background()))

	require.False(t, f.manager.Current().Authenticated())
	require.Zero(t, f.authority.ValidateCalls())
	f.requireStoreEmpty(t)
}

func TestInitializeDiscardsCorruptIdentity(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(store.KeyCredential, testCredential))
	require.NoError(t, f.store.Set(store.KeyIdentity, "{not json"))

	require.NoError(t, f.manager.Initialize(context.Background()))

	require.False(t, f.manager.Current().Authenticated())
	require.Zero(t, f.authority.ValidateCalls())
	f.requireStoreEmpty(t)
}

func TestInitializeTwiceFails(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.manager.Initialize(context.Background()))
	require.Error(t, f.manager.Initialize(context.Background()))
}

func TestLoginPersistsBeforeReturning(t *testing.T) {
	f := setupTestFixture(t)
	identity := testIdentity(1, "john.doe")

	require.NoError(t, f.manager.Login(identity, testCredential))

	current := f.manager.Current()
	require.Equal(t, identity, current.Identity)
	require.Equal(t, session.Credential(testCredential), current.Credential)
	f.requireStoreHolds(t, identity, testCredential)
}

func TestLoginRestoredAfterRestart(t *testing.T) {
	f := setupTestFixture(t)
	identity := testIdentity(1, "john.doe")
	require.NoError(t, f.manager.Login(identity, testCredential))

	// A fresh manager over the same store simulates a process restart.
	restarted, err := session.New(session.Deps{
		Store:     f.store,
		Authority: f.authority,
	})
	require.NoError(t, err)

	f.authority.ValidateFunc = func(_ context.Context, cred session.Credential) (*session.Identity, error) {
		require.Equal(t, session.Credential(testCredential), cred)
		return nil, nil
	}
	require.NoError(t, restarted.Initialize(context.Background()))

	current := restarted.Current()
	require.True(t, current.Authenticated())
	require.Equal(t, *identity, *current.Identity)
	require.Equal(t, session.Credential(testCredential), current.Credential)
}

func TestLoginRequiresIdentityAndCredential(t *testing.T) {
	f := setupTestFixture(t)

	require.Error(t, f.manager.Login(nil, testCredential))
	require.Error(t, f.manager.Login(testIdentity(1, "john"), ""))
	require.False(t, f.manager.Current().Authenticated())
	require.Zero(t, f.store.Len())
}

func TestLoginFailsWhenStoreFails(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetErr = errors.New("disk full")

	require.Error(t, f.manager.Login(testIdentity(1, "john"), testCredential))
	require.False(t, f.manager.Current().Authenticated())
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(testIdentity(1, "john.doe"), testCredential))

	require.NoError(t, f.manager.Logout())
	require.NoError(t, f.manager.Logout())

	require.False(t, f.manager.Current().Authenticated())
	f.requireStoreEmpty(t)

	events := drainEvents(f.manager)
	var logouts int
	for _, ev := range events {
		if ev.Kind == session.EventLoggedOut {
			logouts++
		}
	}
	require.Equal(t, 1, logouts)
}

func TestRefreshSuccessAppliesNewSession(t *testing.T) {
	f := setupTestFixture(t)
	newIdentity := testIdentity(2, "jane.doe")
	f.authority.IssueFunc = func(context.Context) (session.Credential, *session.Identity, error) {
		return testNewCredential, newIdentity, nil
	}

	require.True(t, f.manager.Refresh(context.Background()))

	current := f.manager.Current()
	require.Equal(t, newIdentity, current.Identity)
	require.Equal(t, session.Credential(testNewCredential), current.Credential)
	f.requireStoreHolds(t, newIdentity, testNewCredential)
}

func TestRefreshFailureClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(testIdentity(1, "john.doe"), testCredential))

	cause := errors.New("boom")
	f.authority.IssueFunc = func(context.Context) (session.Credential, *session.Identity, error) {
		return "", nil, cause
	}

	require.False(t, f.manager.Refresh(context.Background()))

	require.False(t, f.manager.Current().Authenticated())
	f.requireStoreEmpty(t)

	failure := requireEvent(t, drainEvents(f.manager), session.EventRefreshFailed)
	require.ErrorIs(t, failure.Err, cause)
}

func TestRefreshIncompleteIssueIsFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.authority.IssueFunc = func(context.Context) (session.Credential, *session.Identity, error) {
		return testNewCredential, nil, nil // credential without identity
	}

	require.False(t, f.manager.Refresh(context.Background()))
	require.False(t, f.manager.Current().Authenticated())
}

func TestRefreshCompletingAfterLogoutIsDiscarded(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(testIdentity(1, "john.doe"), testCredential))

	issueStarted := make(chan struct{})
	issueRelease := make(chan struct{})
	f.authority.IssueFunc = func(context.Context) (session.Credential, *session.Identity, error) {
		close(issueStarted)
		<-issueRelease
		return testNewCredential, testIdentity(2, "late.arrival"), nil
	}

	result := make(chan bool, 1)
	go func() {
		result <- f.manager.Refresh(context.Background())
	}()

	<-issueStarted
	require.NoError(t, f.manager.Logout())
	close(issueRelease)

	require.False(t, <-result)
	require.False(t, f.manager.Current().Authenticated())
	f.requireStoreEmpty(t)

	requireEvent(t, drainEvents(f.manager), session.EventStaleRefreshDiscarded)
}

func TestEventTimestampsUseInjectedClock(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	f := setupTestFixture(t, session.WithNowTime(func() time.Time { return fixed }))

	require.NoError(t, f.manager.Login(testIdentity(1, "john.doe"), testCredential))

	loggedIn := requireEvent(t, drainEvents(f.manager), session.EventLoggedIn)
	require.True(t, loggedIn.At.Equal(fixed))
	require.NotEmpty(t, loggedIn.ID)
}

func TestMetricsCountLifecycleTransitions(t *testing.T) {
	registry := prometheus.NewRegistry()
	f := setupTestFixture(t, session.WithMetrics(registry))

	require.NoError(t, f.manager.Login(testIdentity(1, "john.doe"), testCredential))
	f.authority.IssueFunc = func(context.Context) (session.Credential, *session.Identity, error) {
		return "", nil, authority.ErrUnreachable
	}
	require.False(t, f.manager.Refresh(context.Background()))

	families, err := registry.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			name := family.GetName()
			for _, label := range metric.GetLabel() {
				name += "|" + label.GetValue()
			}
			counts[name] = metric.GetCounter().GetValue()
		}
	}

	require.Equal(t, 1.0, counts["auth_client_logins_total"])
	require.Equal(t, 1.0, counts["auth_client_logouts_total"])
	require.Equal(t, 1.0, counts["auth_client_refreshes_total|failed"])
}
