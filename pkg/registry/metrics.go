package registry

// Metrics receives registry operation observations. Implementations must
// be safe for concurrent use. A nil Metrics in RegistryConfig selects a
// no-op implementation.
type Metrics interface {
	// RecordOperation reports one registry call. op is one of "list",
	// "update_description", "mark_processed", "delete", "resolve_url";
	// status is "success" or "error".
	RecordOperation(op string, status string)
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(string, string) {}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
