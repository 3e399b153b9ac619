package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/inject"
	"github.com/km-arc/go-inject/framework/metrics"
)

func TestRecorder_TracksScopesAndInstances(t *testing.T) {
	rec := metrics.New()
	store := inject.NewScopeStore()
	c := inject.NewContainer(inject.WithScopeStore(store), inject.WithObserver(rec))
	c.Scoped("uow", func(context.Context, *inject.Container) (any, error) { return new(int), nil })
	c.Bind("tmp", func(context.Context, *inject.Container) (any, error) { return new(int), nil })

	ctx, err := store.Start(context.Background())
	require.NoError(t, err)
	for n := 0; n < 3; n++ {
		_, err = c.Make(ctx, "uow")
		require.NoError(t, err)
		_, err = c.Make(ctx, "tmp")
		require.NoError(t, err)
	}

	assert.Equal(t, map[string]float64{"scoped": 1, "transient": 3},
		byLabel(t, rec, "inject_instances_created_total"))
	require.NoError(t, store.End(ctx))
}

func TestRecorder_ScopeGauges(t *testing.T) {
	rec := metrics.New()
	store := inject.NewScopeStore()
	store.Observe(rec)

	a, err := store.Start(context.Background())
	require.NoError(t, err)
	b, err := store.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.End(a))

	assert.Equal(t, 1, gauge(t, rec, "inject_scopes_active"))
	assert.Equal(t, 2, gauge(t, rec, "inject_scopes_started_total"))
	assert.Equal(t, 1, gauge(t, rec, "inject_scopes_ended_total"))

	require.NoError(t, store.End(b))
	assert.Equal(t, 0, gauge(t, rec, "inject_scopes_active"))
}

func TestRecorder_LifecycleErrors(t *testing.T) {
	rec := metrics.New()
	rec.LifecycleError("end")
	rec.LifecycleError("end")
	rec.LifecycleError("start")

	assert.Equal(t, map[string]float64{"end": 2, "start": 1},
		byLabel(t, rec, "inject_lifecycle_errors_total"))
}

func TestRecorder_Handler(t *testing.T) {
	rec := metrics.New()
	rec.ScopeStarted(uuid.New())

	rr := httptest.NewRecorder()
	rec.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "inject_scopes_started_total 1")
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

// gauge reads a single unlabeled gauge or counter from the registry.
func gauge(t *testing.T, rec *metrics.Recorder, name string) int {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if m.GetGauge() != nil {
			return int(m.GetGauge().GetValue())
		}
		return int(m.GetCounter().GetValue())
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// byLabel reads a single-label counter vector from the registry.
func byLabel(t *testing.T, rec *metrics.Recorder, name string) map[string]float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			values[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	return values
}
