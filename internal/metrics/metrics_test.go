package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFeatureMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	logs := m.Feature("logs")

	logs.RecordWritten(10)
	logs.RecordWritten(5)
	logs.RecordDropped("consent")
	logs.UploadDelivered(100, 20*time.Millisecond)
	logs.UploadFailed(true)
	logs.UploadFailed(false)
	logs.CycleSkipped("network")
	logs.SetUploadDelay(1500 * time.Millisecond)
	logs.SetDirectorySize(2048)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"records written", testutil.ToFloat64(m.RecordsWritten.WithLabelValues("logs")), 2},
		{"bytes written", testutil.ToFloat64(m.BytesWritten.WithLabelValues("logs")), 15},
		{"dropped", testutil.ToFloat64(m.RecordsDropped.WithLabelValues("logs", "consent")), 1},
		{"delivered", testutil.ToFloat64(m.UploadsTotal.WithLabelValues("logs", OutcomeDelivered)), 1},
		{"retryable", testutil.ToFloat64(m.UploadsTotal.WithLabelValues("logs", OutcomeRetryable)), 1},
		{"rejected", testutil.ToFloat64(m.UploadsTotal.WithLabelValues("logs", OutcomeRejected)), 1},
		{"uploaded bytes", testutil.ToFloat64(m.UploadedBytes.WithLabelValues("logs")), 100},
		{"skipped", testutil.ToFloat64(m.SkippedCycles.WithLabelValues("logs", "network")), 1},
		{"delay", testutil.ToFloat64(m.UploadDelay.WithLabelValues("logs")), 1.5},
		{"directory", testutil.ToFloat64(m.DirectorySize.WithLabelValues("logs")), 2048},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	expected := `
# HELP telship_upload_delay_seconds Current delay between upload cycles
# TYPE telship_upload_delay_seconds gauge
telship_upload_delay_seconds{feature="logs"} 1.5
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "telship_upload_delay_seconds"); err != nil {
		t.Error(err)
	}
}

func TestNew_NilRegisterer(t *testing.T) {
	m := New(nil)
	m.Feature("traces").RecordWritten(1)
	if got := testutil.ToFloat64(m.RecordsWritten.WithLabelValues("traces")); got != 1 {
		t.Errorf("records written = %v, want 1", got)
	}
}
