package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The registry is a process-wide singleton, so the disabled-state checks
// must run before any test calls InitRegistry. Tests execute in source
// order within this file.

func TestConstructorsReturnNilWhenDisabled(t *testing.T) {
	if IsEnabled() {
		t.Skip("registry already initialized by another test binary invocation")
	}

	assert.Nil(t, GetRegistry())
	assert.Nil(t, Handler())
	assert.Nil(t, NewUploadMetrics())
	assert.Nil(t, NewRegistryMetrics())
}

func TestInitRegistry(t *testing.T) {
	InitRegistry()

	require.True(t, IsEnabled())
	require.NotNil(t, GetRegistry())
	assert.NotNil(t, Handler())

	// Idempotent
	before := GetRegistry()
	InitRegistry()
	assert.Same(t, before, GetRegistry())
}

func TestUploadMetrics_RecordUpload(t *testing.T) {
	InitRegistry()

	m := NewUploadMetrics()
	require.NotNil(t, m)

	m.RecordUpload("document", "completed", 2048, 150*time.Millisecond)
	m.RecordUpload("document", "completed", 1024, 100*time.Millisecond)
	m.RecordUpload("image", "blob_error", 512, 50*time.Millisecond)

	impl := m.(*uploadMetrics)
	assert.Equal(t, 2.0, testutil.ToFloat64(impl.uploadsTotal.WithLabelValues("document", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.uploadsTotal.WithLabelValues("image", "blob_error")))

	// Bytes only accumulate for completed uploads
	assert.Equal(t, 3072.0, testutil.ToFloat64(impl.uploadBytes.WithLabelValues("document")))
	assert.Equal(t, 0.0, testutil.ToFloat64(impl.uploadBytes.WithLabelValues("image")))
}

func TestRegistryMetrics_RecordOperation(t *testing.T) {
	InitRegistry()

	m := NewRegistryMetrics()
	require.NotNil(t, m)

	m.RecordOperation("list", "success")
	m.RecordOperation("list", "success")
	m.RecordOperation("delete", "error")

	impl := m.(*registryMetrics)
	assert.Equal(t, 2.0, testutil.ToFloat64(impl.operationsTotal.WithLabelValues("list", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.operationsTotal.WithLabelValues("delete", "error")))
}
