package app

import "testing"

func TestAvailability(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		status   any
		expected bool
	}{
		{"no statuses, nil is unavailable", nil, nil, false},
		{"no statuses, anything reported counts", nil, "degraded", true},
		{"configured statuses match", []string{"ok", "up"}, "up", true},
		{"configured statuses reject others", []string{"ok"}, "degraded", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := availability(tt.statuses).Evaluate(tt.status); got != tt.expected {
				t.Errorf("availability(%v).Evaluate(%v) = %v, want %v", tt.statuses, tt.status, got, tt.expected)
			}
		})
	}
}
