package cartsync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics counts remote traffic produced by an engine. A nil *Metrics, or one
// built without a registerer, records nothing.
type Metrics struct {
	remoteCalls     *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec
	reconciliations *prometheus.CounterVec
	liveRefresh     prometheus.Counter
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	remoteCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartsync_remote_calls_total",
		Help: "Remote cart API calls by operation and result.",
	}, []string{"op", "result"})
	callDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cartsync_remote_call_duration_seconds",
		Help:    "Latency of remote cart API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartsync_reconciliations_total",
		Help: "Login reconciliation passes by result.",
	}, []string{"result"})
	liveRefresh := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cartsync_live_refresh_total",
		Help: "Refreshes triggered by updates from other clients.",
	})
	reg.MustRegister(remoteCalls, callDuration, reconciliations, liveRefresh)
	return &Metrics{
		remoteCalls:     remoteCalls,
		callDuration:    callDuration,
		reconciliations: reconciliations,
		liveRefresh:     liveRefresh,
	}
}

func (m *Metrics) observeCall(op string, took time.Duration, err error) {
	if m == nil || m.remoteCalls == nil {
		return
	}
	m.remoteCalls.WithLabelValues(op, result(err)).Inc()
	m.callDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) observeReconcile(err error) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) incLiveRefresh() {
	if m == nil || m.liveRefresh == nil {
		return
	}
	m.liveRefresh.Inc()
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}
