// Package metrics exports request-scope and resolution metrics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-inject/framework/inject"
)

const namespace = "inject"

// Recorder observes an injector and its scope store.
// It satisfies inject.Observer.
type Recorder struct {
	registry *prometheus.Registry

	scopesActive    prometheus.Gauge
	scopesStarted   prometheus.Counter
	scopesEnded     prometheus.Counter
	scopeInstances  prometheus.Histogram
	instances       *prometheus.CounterVec
	lifecycleErrors *prometheus.CounterVec
}

var _ inject.Observer = (*Recorder)(nil)

// New creates a Recorder with its own registry, which also carries the Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scopesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scopes_active",
			Help:      "Request scopes currently open.",
		}),
		scopesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_started_total",
			Help:      "Request scopes started.",
		}),
		scopesEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_ended_total",
			Help:      "Request scopes ended.",
		}),
		scopeInstances: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scope_instances",
			Help:      "Instances cached by a request scope when it ended.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}),
		instances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_created_total",
			Help:      "Instances built by factories, by lifetime.",
		}, []string{"lifetime"}),
		lifecycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_errors_total",
			Help:      "Failed scope lifecycle operations, by operation.",
		}, []string{"op"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.scopesActive,
		r.scopesStarted,
		r.scopesEnded,
		r.scopeInstances,
		r.instances,
		r.lifecycleErrors,
	)
	return r
}

// Registry returns the registry the recorder's metrics live in.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ScopeStarted(uuid.UUID) {
	r.scopesStarted.Inc()
	r.scopesActive.Inc()
}

func (r *Recorder) ScopeEnded(_ uuid.UUID, instances int) {
	r.scopesEnded.Inc()
	r.scopesActive.Dec()
	r.scopeInstances.Observe(float64(instances))
}

func (r *Recorder) InstanceCreated(_ string, lifetime inject.Lifetime) {
	r.instances.WithLabelValues(lifetime.String()).Inc()
}

// LifecycleError counts a failed start or end.
func (r *Recorder) LifecycleError(op string) {
	r.lifecycleErrors.WithLabelValues(op).Inc()
}
