package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const envPrefix = "BEACON_"

// loadFile reads a flat YAML mapping and returns it keyed by environment
// variable name. Keys are upper-cased and prefixed with BEACON_ unless they
// already carry it or target a REDIS_* tuning knob:
//
//	listen_port: ":9000"          -> BEACON_LISTEN_PORT
//	available_statuses: [ok, up]  -> BEACON_AVAILABLE_STATUSES=ok,up
//	REDIS_POOL_SIZE: 20           -> REDIS_POOL_SIZE
func loadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		text, err := scalarString(v)
		if err != nil {
			return nil, fmt.Errorf("config key %q: %w", k, err)
		}
		values[envKey(k)] = text
	}
	return values, nil
}

func envKey(k string) string {
	k = strings.ToUpper(strings.TrimSpace(k))
	if strings.HasPrefix(k, envPrefix) || strings.HasPrefix(k, "REDIS_") {
		return k
	}
	return envPrefix + k
}

func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, err := scalarString(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	case map[string]any:
		return "", fmt.Errorf("nested mappings are not supported")
	default:
		return fmt.Sprint(t), nil
	}
}
