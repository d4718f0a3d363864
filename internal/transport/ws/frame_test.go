package ws

import (
	"errors"
	"testing"

	"github.com/MrSnakeDoc/beacon/internal/events"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		expected events.Event
		wantErr  bool
	}{
		{
			name:     "register",
			msg:      `{"event":"register","data":{"name":"svc","port":8080,"protocol":"https"}}`,
			expected: events.Event{Kind: events.KindRegister, Name: "svc", Port: 8080, Protocol: "https"},
		},
		{
			name:     "register without port",
			msg:      `{"event":"register","data":{"name":"svc"}}`,
			expected: events.Event{Kind: events.KindRegister, Name: "svc", Port: -1},
		},
		{
			name:     "register with port zero",
			msg:      `{"event":"register","data":{"name":"svc","port":0}}`,
			expected: events.Event{Kind: events.KindRegister, Name: "svc", Port: 0},
		},
		{
			name:     "register with null data",
			msg:      `{"event":"register","data":null}`,
			expected: events.Event{Kind: events.KindRegister, Port: -1},
		},
		{
			name:     "status string",
			msg:      `{"event":"status","data":{"name":"svc","status":"ok"}}`,
			expected: events.Event{Kind: events.KindStatus, Name: "svc", Status: "ok"},
		},
		{
			name:     "unregister",
			msg:      `{"event":"unregister","data":{"name":"svc"}}`,
			expected: events.Event{Kind: events.KindUnregister, Name: "svc"},
		},
		{
			name:    "not json",
			msg:     `register svc`,
			wantErr: true,
		},
		{
			name:    "port is a string",
			msg:     `{"event":"register","data":{"name":"svc","port":"80"}}`,
			wantErr: true,
		},
		{
			name:    "client cannot send disconnect",
			msg:     `{"event":"disconnect","data":{}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeFrame([]byte(tt.msg))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("decodeFrame() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeFrame() unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("decodeFrame() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestDecodeFrameStructuredStatus(t *testing.T) {
	got, err := decodeFrame([]byte(`{"event":"status","data":{"name":"svc","status":{"state":"ok","load":0.5}}}`))
	if err != nil {
		t.Fatalf("decodeFrame() unexpected error: %v", err)
	}

	status, ok := got.Status.(map[string]any)
	if !ok {
		t.Fatalf("Status type = %T, want map[string]any", got.Status)
	}
	if status["state"] != "ok" || status["load"] != 0.5 {
		t.Errorf("Status = %v", status)
	}
}

func TestDecodeFrameUnknownEvent(t *testing.T) {
	_, err := decodeFrame([]byte(`{"event":"hello"}`))
	if !errors.Is(err, errUnknownEvent) {
		t.Errorf("error = %v, want errUnknownEvent", err)
	}
}
