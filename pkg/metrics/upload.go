package metrics

import (
	"time"

	"github.com/clearwealth/filevault/pkg/upload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// uploadMetrics is the Prometheus implementation of upload.Metrics.
type uploadMetrics struct {
	uploadsTotal   *prometheus.CounterVec
	uploadBytes    *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
}

// NewUploadMetrics creates a Prometheus-backed upload.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes the pipeline fall back to its built-in no-op implementation.
func NewUploadMetrics() upload.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &uploadMetrics{
		uploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_uploads_total",
				Help: "Total number of upload attempts by category and status",
			},
			[]string{"category", "status"},
		),
		uploadBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_upload_bytes_total",
				Help: "Total bytes of successfully uploaded files by category",
			},
			[]string{"category"},
		),
		uploadDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filevault_upload_duration_seconds",
				Help:    "Upload pipeline duration by status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
	}
}

func (m *uploadMetrics) RecordUpload(category string, status string, sizeBytes int64, duration time.Duration) {
	m.uploadsTotal.WithLabelValues(category, status).Inc()
	if status == "completed" {
		m.uploadBytes.WithLabelValues(category).Add(float64(sizeBytes))
	}
	m.uploadDuration.WithLabelValues(status).Observe(duration.Seconds())
}
