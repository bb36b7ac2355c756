package tmem

// metrics.go is a thin abstraction over Prometheus, in the exact shape of
// the donor's pkg/metrics.go: a metricsSink interface, a no-op
// implementation used when the caller does not opt in, and a Prometheus
// implementation used when WithMetrics(reg) is supplied. Counters cover the
// Observable Counters of §6 (puts, gets, invalidates, controls, generates)
// plus per-backend dispatch counts.
//
// © 2025 arena-cache authors. MIT License.

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink is the internal interface abstracting Prometheus vs noop.
type metricsSink interface {
	incPut()
	incGet()
	incInvalidate()
	incControl()
	incGenerate()
	incBusy()
	incDispatch(backendName string)
}

/* ---------------- no-op implementation ---------------- */

type noopMetrics struct{}

func (noopMetrics) incPut()                   {}
func (noopMetrics) incGet()                   {}
func (noopMetrics) incInvalidate()             {}
func (noopMetrics) incControl()                {}
func (noopMetrics) incGenerate()               {}
func (noopMetrics) incBusy()                   {}
func (noopMetrics) incDispatch(string)         {}

/* ---------------- Prometheus implementation ---------------- */

type promMetrics struct {
	puts        prometheus.Counter
	gets        prometheus.Counter
	invalidates prometheus.Counter
	controls    prometheus.Counter
	generates   prometheus.Counter
	busy        prometheus.Counter
	dispatch    *prometheus.CounterVec
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	pm := &promMetrics{
		puts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tmem", Name: "puts_total", Help: "Number of PUT commands.",
		}),
		gets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tmem", Name: "gets_total", Help: "Number of GET commands.",
		}),
		invalidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tmem", Name: "invalidates_total", Help: "Number of INVALIDATE commands.",
		}),
		controls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tmem", Name: "controls_total", Help: "Number of CONTROL commands.",
		}),
		generates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tmem", Name: "generates_total", Help: "Number of PUT and GET commands served in GENERATE mode.",
		}),
		busy: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tmem", Name: "busy_total", Help: "Number of commands that returned Busy.",
		}),
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tmem", Name: "backend_dispatch_total", Help: "Number of calls forwarded to each backend.",
		}, []string{"backend"}),
	}
	reg.MustRegister(pm.puts, pm.gets, pm.invalidates, pm.controls, pm.generates, pm.busy, pm.dispatch)
	return pm
}

func (m *promMetrics) incPut()         { m.puts.Inc() }
func (m *promMetrics) incGet()         { m.gets.Inc() }
func (m *promMetrics) incInvalidate()  { m.invalidates.Inc() }
func (m *promMetrics) incControl()     { m.controls.Inc() }
func (m *promMetrics) incGenerate()    { m.generates.Inc() }
func (m *promMetrics) incBusy()        { m.busy.Inc() }
func (m *promMetrics) incDispatch(backendName string) {
	m.dispatch.WithLabelValues(backendName).Inc()
}

func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
