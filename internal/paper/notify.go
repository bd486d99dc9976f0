package paper

import (
	"time"

	"github.com/rs/zerolog"
)

// EventKind tags the state transitions surfaced to the alerting collaborator.
type EventKind string

const (
	// EventFill fires on every executed order.
	EventFill EventKind = "fill"
	// EventHalt fires when the daily loss halt trips.
	EventHalt EventKind = "halt"
	// EventEmergencyStop fires when a run terminates abnormally.
	EventEmergencyStop EventKind = "emergency_stop"
	// EventFinished fires on normal completion.
	EventFinished EventKind = "finished"
)

// Event is the payload pushed to the alerting collaborator.
type Event struct {
	Kind   EventKind
	Symbol string
	Detail string
	Equity float64
	Ts     time.Time
}

// Notifier receives state-transition events. Delivery is at-most-once and
// must never block or fail the simulation loop; the simulator dispatches in
// a goroutine and logs (not raises) errors.
type Notifier interface {
	Notify(Event) error
}

// LogNotifier writes events to the structured log. The default collaborator
// when no external alert transport is wired.
type LogNotifier struct {
	Log zerolog.Logger
}

// Notify logs the event.
func (n LogNotifier) Notify(ev Event) error {
	n.Log.Info().
		Str("event", string(ev.Kind)).
		Str("sym", ev.Symbol).
		Str("detail", ev.Detail).
		Float64("equity", ev.Equity).
		Msg("simulation event")
	return nil
}
