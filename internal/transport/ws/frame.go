package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/beacon/internal/events"
)

// frame is the envelope of every inbound message:
//
//	{"event":"register","data":{"name":"svc","port":8080,"protocol":"http"}}
//	{"event":"status","data":{"name":"svc","status":"ok"}}
//	{"event":"unregister","data":{"name":"svc"}}
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type registerData struct {
	Name     string `json:"name"`
	Port     *int   `json:"port"`
	Protocol string `json:"protocol"`
}

type statusData struct {
	Name   string `json:"name"`
	Status any    `json:"status"`
}

type unregisterData struct {
	Name string `json:"name"`
}

var errUnknownEvent = errors.New("unknown event")

// decodeFrame turns a raw message into an event without connection identity.
// Semantic validation (empty name, negative port) is left to the registry;
// a missing port is reported as -1 so it is dropped there.
func decodeFrame(msg []byte) (events.Event, error) {
	var f frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return events.Event{}, fmt.Errorf("invalid frame: %w", err)
	}

	data := f.Data
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	switch events.Kind(f.Event) {
	case events.KindRegister:
		var d registerData
		if err := json.Unmarshal(data, &d); err != nil {
			return events.Event{}, fmt.Errorf("invalid register payload: %w", err)
		}
		port := -1
		if d.Port != nil {
			port = *d.Port
		}
		return events.Event{Kind: events.KindRegister, Name: d.Name, Port: port, Protocol: d.Protocol}, nil

	case events.KindStatus:
		var d statusData
		if err := json.Unmarshal(data, &d); err != nil {
			return events.Event{}, fmt.Errorf("invalid status payload: %w", err)
		}
		return events.Event{Kind: events.KindStatus, Name: d.Name, Status: d.Status}, nil

	case events.KindUnregister:
		var d unregisterData
		if err := json.Unmarshal(data, &d); err != nil {
			return events.Event{}, fmt.Errorf("invalid unregister payload: %w", err)
		}
		return events.Event{Kind: events.KindUnregister, Name: d.Name}, nil

	default:
		return events.Event{}, fmt.Errorf("%w: %q", errUnknownEvent, f.Event)
	}
}
