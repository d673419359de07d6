package session

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies a session lifecycle transition or failure.
type EventKind string

const (
	EventValidated             EventKind = "validated"
	EventValidateFailed        EventKind = "validate_failed"
	EventRefreshed             EventKind = "refreshed"
	EventRefreshFailed         EventKind = "refresh_failed"
	EventLoggedIn              EventKind = "logged_in"
	EventLoggedOut             EventKind = "logged_out"
	EventStaleRefreshDiscarded EventKind = "stale_refresh_discarded"
)

// Event is emitted on every session transition and on every failure the
// manager swallows. The manager never propagates validation or refresh
// errors to its callers; the event stream is how consumers and tests
// observe them.
type Event struct {
	ID   string
	Kind EventKind
	Err  error
	At   time.Time
}

// Events returns the manager's event stream. The channel is buffered and
// the manager never blocks on it: if no consumer is draining, the oldest
// buffered events are kept and new ones are dropped.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) emit(kind EventKind, err error) {
	ev := Event{
		ID:   uuid.New().String(),
		Kind: kind,
		Err:  err,
		At:   m.nowTime(),
	}

	logEvent := m.logger.Debug()
	if err != nil {
		logEvent = m.logger.Warn().Err(err)
	}
	logEvent.Str("event", string(kind)).Str("event_id", ev.ID).Msg("session event")

	select {
	case m.events <- ev:
	default: // consumer is not draining, drop rather than block
	}
}
