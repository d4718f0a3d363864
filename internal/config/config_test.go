package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"/discovery", "/discovery"},
		{"discovery/", "/discovery"},
		{"/api/registry/", "/api/registry"},
		{"/", "/discovery"},
		{"", "/discovery"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizePath(tt.in); got != tt.expected {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(` ok, "up" ,, 'ready'`)
	expected := []string{"ok", "up", "ready"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("splitAndTrim() = %v, want %v", got, expected)
	}
	if splitAndTrim("") != nil {
		t.Error("splitAndTrim(\"\") should be nil")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beacon.yaml")
	content := `
listen_port: ":9000"
available_statuses: [ok, up]
sweep_on_disconnect: false
BEACON_GC_INTERVAL: 2m
REDIS_POOL_SIZE: 20
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	values, err := loadFile(path)
	if err != nil {
		t.Fatalf("loadFile() error = %v", err)
	}

	expected := map[string]string{
		"BEACON_LISTEN_PORT":         ":9000",
		"BEACON_AVAILABLE_STATUSES":  "ok,up",
		"BEACON_SWEEP_ON_DISCONNECT": "false",
		"BEACON_GC_INTERVAL":         "2m",
		"REDIS_POOL_SIZE":            "20",
	}
	if !reflect.DeepEqual(values, expected) {
		t.Errorf("loadFile() = %v, want %v", values, expected)
	}
}

func TestLoadFileRejectsNestedMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beacon.yaml")
	if err := os.WriteFile(path, []byte("redis:\n  addr: localhost\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := loadFile(path); err == nil {
		t.Error("loadFile() should reject nested mappings")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := loadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loadFile() should fail on a missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	prev := fileValues
	fileValues = map[string]string{"TEST_LAYERED": "from-file", "TEST_FILE_ONLY": "file"}
	defer func() { fileValues = prev }()

	if err := os.Setenv("TEST_LAYERED", "from-env"); err != nil {
		t.Fatalf("failed to set env var: %v", err)
	}
	defer func() {
		if err := os.Unsetenv("TEST_LAYERED"); err != nil {
			t.Errorf("failed to unset env var: %v", err)
		}
	}()

	if got := getenv("TEST_LAYERED", "def"); got != "from-env" {
		t.Errorf("getenv() = %q, want from-env", got)
	}
	if got := getenv("TEST_FILE_ONLY", "def"); got != "file" {
		t.Errorf("getenv() = %q, want file", got)
	}
	if got := getenv("TEST_NOWHERE", "def"); got != "def" {
		t.Errorf("getenv() = %q, want def", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenPort != ":8080" {
		t.Errorf("ListenPort = %q, want :8080", cfg.ListenPort)
	}
	if cfg.DiscoveryPath != "/discovery" {
		t.Errorf("DiscoveryPath = %q, want /discovery", cfg.DiscoveryPath)
	}
	if !cfg.SweepOnDisconnect {
		t.Error("SweepOnDisconnect should default to true")
	}
	if cfg.RedisEnabled() {
		t.Error("Redis export should be disabled without BEACON_REDIS_ADDR")
	}
	if cfg.TLSEnabled() {
		t.Error("TLS should be disabled without cert and key")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			WSPingInterval: 10 * time.Second,
			WSPongTimeout:  30 * time.Second,
			EventBuffer:    1,
			GCInterval:     time.Minute,
			ExportInterval: time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "ping not shorter than pong", mutate: func(c *Config) { c.WSPingInterval = c.WSPongTimeout }, wantErr: true},
		{name: "tls cert without key", mutate: func(c *Config) { c.TLSCertFile = "cert.pem" }, wantErr: true},
		{name: "zero event buffer", mutate: func(c *Config) { c.EventBuffer = 0 }, wantErr: true},
		{name: "zero gc interval", mutate: func(c *Config) { c.GCInterval = 0 }, wantErr: true},
		{
			name: "redis password required but empty",
			mutate: func(c *Config) {
				c.RedisAddr = "localhost:6379"
				c.RedisPasswordRequired = true
			},
			wantErr: true,
		},
		{
			name: "password requirement ignored without redis",
			mutate: func(c *Config) {
				c.RedisPasswordRequired = true
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
