package domain

// Status is the last-known health of a server, derived solely from reported
// request outcomes. It is persisted between invocations.
type Status string

const (
	// StatusNeverReached is the initial state: no request against the server
	// has ever completed successfully.
	StatusNeverReached Status = "never_reached"

	// StatusUnavailable means the server answered at least once in the past
	// but the most recent request failed at the protocol level.
	StatusUnavailable Status = "unavailable"

	// StatusRunning means the most recent request got a structurally valid
	// answer from the server.
	StatusRunning Status = "running"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNeverReached, StatusUnavailable, StatusRunning:
		return true
	default:
		return false
	}
}

// Outcome classifies one completed request against a server's endpoints.
// A structurally valid response counts as success even when it carries an
// applicative error such as "unknown id" or "no results".
type Outcome string

const (
	ProtocolSuccess Outcome = "protocol_success"
	ProtocolFailure Outcome = "protocol_failure"
)

// Apply returns the status after observing one outcome. A server that has
// never been reached stays in that state until it succeeds at least once.
func (s Status) Apply(outcome Outcome) Status {
	switch s {
	case StatusNeverReached:
		if outcome == ProtocolSuccess {
			return StatusRunning
		}
		return StatusNeverReached
	case StatusRunning, StatusUnavailable:
		if outcome == ProtocolSuccess {
			return StatusRunning
		}
		return StatusUnavailable
	default:
		return s
	}
}
