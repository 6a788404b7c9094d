package connector

import "fmt"

// EventKind classifies an [Event].
type EventKind int

const (
	EventStatusChanged EventKind = iota
	EventLoginFailed
	EventAuthFailed
	EventSyncStarted
	EventSyncFinished
	EventWarning
)

func (k EventKind) String() string {
	switch k {
	case EventStatusChanged:
		return "status_changed"
	case EventLoginFailed:
		return "login_failed"
	case EventAuthFailed:
		return "auth_failed"
	case EventSyncStarted:
		return "sync_started"
	case EventSyncFinished:
		return "sync_finished"
	case EventWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Event is a user-facing notification raised by the connector.
type Event struct {
	Kind    EventKind
	Status  Status
	Message string
	Err     error
}

func (e Event) String() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Status)
	}
}
