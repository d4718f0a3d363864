package events

import "github.com/MrSnakeDoc/beacon/internal/domain"

// Kind names an inbound event.
type Kind string

const (
	KindRegister   Kind = "register"
	KindStatus     Kind = "status"
	KindUnregister Kind = "unregister"

	// KindDisconnect is emitted by the transport when a connection closes.
	KindDisconnect Kind = "disconnect"
)

// Event is one inbound event, tagged with the emitting connection.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind         Kind
	ConnectionID string
	RemoteAddr   string

	Name     string
	Port     int
	Protocol string
	Status   domain.Status
}
