package domain

import (
	"net"
	"strconv"
)

// DefaultProtocol is used when a register event does not announce one.
const DefaultProtocol = "http"

// Status is the opaque value last reported by an endpoint.
// A nil Status means the endpoint has not reported anything yet.
type Status = any

// Endpoint is one physical registration tied to a single connection.
//
// JSON names match what directory consumers already parse.
type Endpoint struct {
	// ConnectionID is the stable identity of the connection that registered
	// the endpoint. Unique per live connection.
	ConnectionID string `json:"id"`

	// URL is computed once at registration: protocol://host:port/
	URL string `json:"url"`

	// Status is set by status events, nil until the first one.
	Status Status `json:"status,omitempty"`
}

// ServiceInstance groups every live endpoint advertised under one name.
//
// Invariant while held by the registry: Endpoints is never empty and no two
// endpoints share a ConnectionID.
type ServiceInstance struct {
	Name      string     `json:"name"`
	Endpoints []Endpoint `json:"infos"`
}

// BuildURL derives the endpoint URL from the announced protocol and port and
// the remote address of the connection. IPv6 hosts are bracketed.
func BuildURL(protocol, host string, port int) string {
	if protocol == "" {
		protocol = DefaultProtocol
	}
	return protocol + "://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
}

// Clone returns a deep copy of the instance. Status values are JSON-shaped
// (scalars, maps, slices) and are copied recursively.
func (s ServiceInstance) Clone() ServiceInstance {
	out := ServiceInstance{
		Name:      s.Name,
		Endpoints: make([]Endpoint, len(s.Endpoints)),
	}
	for i, ep := range s.Endpoints {
		out.Endpoints[i] = ep.Clone()
	}
	return out
}

// Clone returns a copy of the endpoint whose Status shares no mutable state
// with the original.
func (e Endpoint) Clone() Endpoint {
	e.Status = cloneStatus(e.Status)
	return e
}

func cloneStatus(v Status) Status {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneStatus(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneStatus(val)
		}
		return s
	default:
		return v
	}
}
