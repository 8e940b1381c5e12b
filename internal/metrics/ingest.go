package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 수신 결과
const (
	IngestCreated   = "created"
	IngestDuplicate = "duplicate"
	IngestInvalid   = "invalid"
	IngestFailed    = "failed"
)

// Ingest holds the server-side ingestion metrics. A nil *Ingest records nothing.
type Ingest struct {
	received     *prometheus.CounterVec
	sinkErrors   *prometheus.CounterVec
	sinkDuration *prometheus.HistogramVec
	uploads      *prometheus.CounterVec
}

// NewIngest registers the ingestion metrics on reg
func NewIngest(reg prometheus.Registerer) *Ingest {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Ingest{
		received: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bugreport_ingest_reports_total",
			Help: "Reports received by result",
		}, []string{"result", "error_source"}),
		sinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bugreport_ingest_sink_errors_total",
			Help: "Secondary store writes that failed",
		}, []string{"sink"}),
		sinkDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bugreport_ingest_sink_duration_seconds",
			Help:    "Secondary store write latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"sink"}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bugreport_ingest_screenshot_uploads_total",
			Help: "Screenshot offloads to object storage",
		}, []string{"result"}),
	}
}

func (m *Ingest) Received(result, source string) {
	if m != nil {
		m.received.WithLabelValues(result, source).Inc()
	}
}

// SinkWrite records one sink call
func (m *Ingest) SinkWrite(sink string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.sinkDuration.WithLabelValues(sink).Observe(d.Seconds())
	if err != nil {
		m.sinkErrors.WithLabelValues(sink).Inc()
	}
}

func (m *Ingest) Upload(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.uploads.WithLabelValues("failed").Inc()
		return
	}
	m.uploads.WithLabelValues("ok").Inc()
}
