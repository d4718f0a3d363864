package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/beacon/internal/events"
	"github.com/MrSnakeDoc/beacon/internal/registry"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	reg := registry.New(nil)
	reg.Register("svc", 80, "http", "A", "1.1.1.1")
	reg.Register("svc", 81, "http", "B", "1.1.1.2")

	m.TrackRegistry(reg)
	m.TrackConnections(func() int { return 3 })
	m.EventHandled(events.KindRegister, true)
	m.EventHandled(events.KindStatus, false)
	m.FrameDropped("rate_limited")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		"beacon_instances 1",
		"beacon_endpoints 2",
		"beacon_connections 3",
		`beacon_events_total{applied="true",kind="register"} 1`,
		`beacon_events_total{applied="false",kind="status"} 1`,
		`beacon_events_dropped_total{reason="rate_limited"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewIsolated(t *testing.T) {
	// Two instances must not panic on duplicate registration.
	_ = New()
	_ = New()
}
