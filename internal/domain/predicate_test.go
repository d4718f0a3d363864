package domain

import "testing"

func TestStatusIn(t *testing.T) {
	p := StatusIn("ok", "true", "1")

	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{name: "matching string", status: "ok", want: true},
		{name: "other string", status: "down", want: false},
		{name: "nil status", status: nil, want: false},
		{name: "bool true", status: true, want: true},
		{name: "bool false", status: false, want: false},
		{name: "json number", status: float64(1), want: true},
		{name: "fractional number", status: 1.5, want: false},
		{name: "object", status: map[string]any{"status": "ok"}, want: false},
		{name: "array", status: []any{"ok"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Evaluate(tt.status); got != tt.want {
				t.Errorf("StatusIn().Evaluate(%v) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestStatusPresent(t *testing.T) {
	p := StatusPresent()
	if p.Evaluate(nil) {
		t.Error("StatusPresent() should reject nil status")
	}
	if !p.Evaluate("anything") {
		t.Error("StatusPresent() should accept a reported status")
	}
	if !p.Evaluate(false) {
		t.Error("StatusPresent() should accept a reported false")
	}
}

func TestAlways(t *testing.T) {
	if !Always().Evaluate(nil) {
		t.Error("Always() should accept nil status")
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		host     string
		port     int
		want     string
	}{
		{name: "default protocol", protocol: "", host: "1.2.3.4", port: 8080, want: "http://1.2.3.4:8080/"},
		{name: "explicit protocol", protocol: "https", host: "10.0.0.1", port: 443, want: "https://10.0.0.1:443/"},
		{name: "ipv6 host", protocol: "http", host: "::1", port: 80, want: "http://[::1]:80/"},
		{name: "port zero", protocol: "ws", host: "svc.local", port: 0, want: "ws://svc.local:0/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildURL(tt.protocol, tt.host, tt.port); got != tt.want {
				t.Errorf("BuildURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServiceInstanceCloneIsDeep(t *testing.T) {
	orig := ServiceInstance{
		Name: "svc",
		Endpoints: []Endpoint{
			{ConnectionID: "a", URL: "http://1.2.3.4:80/", Status: map[string]any{"load": []any{1.0}}},
		},
	}

	cp := orig.Clone()
	cp.Endpoints[0].URL = "changed"
	cp.Endpoints[0].Status.(map[string]any)["load"].([]any)[0] = 2.0

	if orig.Endpoints[0].URL != "http://1.2.3.4:80/" {
		t.Errorf("Clone() shares endpoint slice, url = %q", orig.Endpoints[0].URL)
	}
	if got := orig.Endpoints[0].Status.(map[string]any)["load"].([]any)[0]; got != 1.0 {
		t.Errorf("Clone() shares status value, got %v", got)
	}
}
