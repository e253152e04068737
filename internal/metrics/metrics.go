// Package metrics exposes telship activity as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for UploadsTotal.
const (
	OutcomeDelivered = "delivered"
	OutcomeRetryable = "retryable"
	OutcomeRejected  = "rejected"
)

// Metrics holds the collectors of one telship instance.
type Metrics struct {
	RecordsWritten *prometheus.CounterVec
	RecordsDropped *prometheus.CounterVec
	BytesWritten   *prometheus.CounterVec

	UploadsTotal   *prometheus.CounterVec
	UploadDuration *prometheus.HistogramVec
	UploadedBytes  *prometheus.CounterVec
	SkippedCycles  *prometheus.CounterVec

	UploadDelay   *prometheus.GaugeVec
	DirectorySize *prometheus.GaugeVec
}

// New registers the collectors with registerer. A nil registerer yields
// collectors that are usable but not exported.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		RecordsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telship_records_written_total",
				Help: "Records appended to storage",
			},
			[]string{"feature"},
		),
		RecordsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telship_records_dropped_total",
				Help: "Records refused by storage",
			},
			[]string{"feature", "reason"}, // reason: consent, invalid, too_large, io
		),
		BytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telship_bytes_written_total",
				Help: "Record bytes appended to storage",
			},
			[]string{"feature"},
		),
		UploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telship_uploads_total",
				Help: "Batch upload attempts by outcome",
			},
			[]string{"feature", "outcome"},
		),
		UploadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telship_upload_duration_seconds",
				Help:    "Duration of successful batch uploads",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"feature"},
		),
		UploadedBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telship_uploaded_bytes_total",
				Help: "Batch bytes delivered to the collector",
			},
			[]string{"feature"},
		),
		SkippedCycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telship_upload_cycles_skipped_total",
				Help: "Upload cycles skipped by a blocking condition",
			},
			[]string{"feature", "blocker"},
		),
		UploadDelay: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "telship_upload_delay_seconds",
				Help: "Current delay between upload cycles",
			},
			[]string{"feature"},
		),
		DirectorySize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "telship_directory_size_bytes",
				Help: "Bytes stored in the authorized directory",
			},
			[]string{"feature"},
		),
	}
}

// Feature returns the collectors bound to one feature stream.
func (m *Metrics) Feature(feature string) *FeatureMetrics {
	return &FeatureMetrics{m: m, feature: feature}
}

// FeatureMetrics records events of one feature stream.
type FeatureMetrics struct {
	m       *Metrics
	feature string
}

func (f *FeatureMetrics) RecordWritten(size int) {
	f.m.RecordsWritten.WithLabelValues(f.feature).Inc()
	f.m.BytesWritten.WithLabelValues(f.feature).Add(float64(size))
}

func (f *FeatureMetrics) RecordDropped(reason string) {
	f.m.RecordsDropped.WithLabelValues(f.feature, reason).Inc()
}

func (f *FeatureMetrics) UploadDelivered(size int, duration time.Duration) {
	f.m.UploadsTotal.WithLabelValues(f.feature, OutcomeDelivered).Inc()
	f.m.UploadDuration.WithLabelValues(f.feature).Observe(duration.Seconds())
	f.m.UploadedBytes.WithLabelValues(f.feature).Add(float64(size))
}

func (f *FeatureMetrics) UploadFailed(retryable bool) {
	outcome := OutcomeRejected
	if retryable {
		outcome = OutcomeRetryable
	}
	f.m.UploadsTotal.WithLabelValues(f.feature, outcome).Inc()
}

func (f *FeatureMetrics) CycleSkipped(blocker string) {
	f.m.SkippedCycles.WithLabelValues(f.feature, blocker).Inc()
}

func (f *FeatureMetrics) SetUploadDelay(delay time.Duration) {
	f.m.UploadDelay.WithLabelValues(f.feature).Set(delay.Seconds())
}

func (f *FeatureMetrics) SetDirectorySize(bytes uint64) {
	f.m.DirectorySize.WithLabelValues(f.feature).Set(float64(bytes))
}
