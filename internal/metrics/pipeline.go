package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline holds the client-side report pipeline counters.
// A nil *Pipeline is valid and records nothing.
type Pipeline struct {
	intercepted        *prometheus.CounterVec
	suppressed         *prometheus.CounterVec
	submissions        *prometheus.CounterVec
	queueDepth         prometheus.Gauge
	queueEvictions     prometheus.Counter
	screenshotFailures prometheus.Counter
	flushes            *prometheus.CounterVec
}

// 억제 사유
const (
	ReasonDuplicate   = "duplicate"
	ReasonRateLimited = "rate_limited"
)

// NewPipeline registers the pipeline metrics on reg
// (prometheus.DefaultRegisterer when nil).
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Pipeline{
		intercepted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bugreport_errors_intercepted_total",
			Help: "Errors that entered the report pipeline",
		}, []string{"source"}),
		suppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bugreport_errors_suppressed_total",
			Help: "Errors dropped before surfacing",
		}, []string{"reason"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bugreport_submissions_total",
			Help: "Report submissions by outcome",
		}, []string{"outcome"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "bugreport_offline_queue_depth",
			Help: "Reports waiting in the offline queue",
		}),
		queueEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "bugreport_offline_queue_evictions_total",
			Help: "Queued reports evicted under storage pressure",
		}),
		screenshotFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "bugreport_screenshot_failures_total",
			Help: "Screenshot captures that produced no image",
		}),
		flushes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bugreport_offline_flush_entries_total",
			Help: "Queued reports attempted during flushes",
		}, []string{"result"}),
	}
}

func (p *Pipeline) Intercepted(source string) {
	if p != nil {
		p.intercepted.WithLabelValues(source).Inc()
	}
}

func (p *Pipeline) Suppressed(reason string) {
	if p != nil {
		p.suppressed.WithLabelValues(reason).Inc()
	}
}

func (p *Pipeline) Submission(outcome string) {
	if p != nil {
		p.submissions.WithLabelValues(outcome).Inc()
	}
}

func (p *Pipeline) QueueDepth(n int) {
	if p != nil {
		p.queueDepth.Set(float64(n))
	}
}

func (p *Pipeline) QueueEvicted() {
	if p != nil {
		p.queueEvictions.Inc()
	}
}

func (p *Pipeline) ScreenshotFailed() {
	if p != nil {
		p.screenshotFailures.Inc()
	}
}

// Flushed records one flush pass
func (p *Pipeline) Flushed(delivered, requeued int) {
	if p == nil {
		return
	}
	p.flushes.WithLabelValues("delivered").Add(float64(delivered))
	p.flushes.WithLabelValues("requeued").Add(float64(requeued))
}
