package upload

import "time"

// Metrics receives upload outcome observations. Implementations must be
// safe for concurrent use; the batch path reports from multiple goroutines.
//
// A nil Metrics in PipelineConfig selects a no-op implementation, so
// instrumentation stays optional.
type Metrics interface {
	// RecordUpload reports one finished upload attempt. status is one of
	// "completed", "rejected", "blob_error", "insert_error".
	RecordUpload(category string, status string, sizeBytes int64, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordUpload(string, string, int64, time.Duration) {}
