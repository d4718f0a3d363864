package redis

import "fmt"

const (
	// KeyDirectory holds the full directory snapshot as JSON
	KeyDirectory = "beacon:directory"
	// KeyPrefixService is the prefix for per-service snapshot keys
	KeyPrefixService = "beacon:service:"
	// KeyAllServices is the key for the set of exported service names
	KeyAllServices = "beacon:services:all"
)

// ServiceKey returns the Redis key for a service by name
func ServiceKey(name string) string {
	return KeyPrefixService + name
}

// DirectoryKey returns the key of the full snapshot
func DirectoryKey() string {
	return KeyDirectory
}

// AllServicesKey returns the key for the set of exported service names
func AllServicesKey() string {
	return KeyAllServices
}

// ExtractServiceName extracts the service name from a Redis key
func ExtractServiceName(key string) (string, error) {
	if len(key) <= len(KeyPrefixService) || key[:len(KeyPrefixService)] != KeyPrefixService {
		return "", fmt.Errorf("invalid service key: %s", key)
	}
	return key[len(KeyPrefixService):], nil
}
