// Package metrics holds the Prometheus collectors exported by the services.
// Every recorder is nil-safe, so code paths without a registry skip recording.
package metrics

const namespace = "farmmarket"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
