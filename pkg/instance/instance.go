// Package instance names the running replica for logs and lock ownership.
package instance

import (
	"os"
	"strings"
)

const EnvInstanceID = "FARMMARKET_INSTANCE_ID"

const fallbackID = "worker-0"

// ID returns FARMMARKET_INSTANCE_ID when set, otherwise the hostname.
func ID() string {
	if id := strings.TrimSpace(os.Getenv(EnvInstanceID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
