package upstream

import "time"

// State is the upstream session's connection state.
type State int32

const (
	// StateDisconnected: no connection. Initial state and the state after shutdown.
	StateDisconnected State = iota
	// StateConnecting: a connection attempt is in flight.
	StateConnecting
	// StateConnected: messages are being relayed.
	StateConnected
	// StateFailed: the last attempt or connection failed; a retry may follow.
	StateFailed
	// StateStopped: the reconnection policy gave up. Terminal.
	StateStopped
)

var stateNames = [...]string{
	StateDisconnected: "disconnected",
	StateConnecting:   "connecting",
	StateConnected:    "connected",
	StateFailed:       "failed",
	StateStopped:      "stopped",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText renders the state name in JSON health output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stats is a point-in-time view of the session.
type Stats struct {
	State               State     `json:"state"`
	Address             string    `json:"address"`
	Attempts            int       `json:"attempts"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	EventsReceived      uint64    `json:"events_received"`
	LastError           string    `json:"last_error,omitempty"`
	ConnectedSince      time.Time `json:"connected_since,omitzero"`
	LastEventAt         time.Time `json:"last_event_at,omitzero"`
	NextAttemptAt       time.Time `json:"next_attempt_at,omitzero"`
}

// StateListener observes transitions. It runs on the session goroutine and
// must not block.
type StateListener func(from, to State)
