// Package metrics exposes the driver's per-iteration observability
// gauges through prometheus/client_golang, registered against a
// private registry so more than one driver can run in the same
// process without colliding on the default global registry.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the gauges the driver updates after each committed
// ESS-controller solve. Nil-safe: methods called on a nil *Recorder
// do nothing.
type Recorder struct {
	registry *prometheus.Registry

	essRatio           prometheus.Gauge
	sigma              prometheus.Gauge
	iteration          prometheus.Gauge
	gmmComponentsActive prometheus.Gauge

	server *http.Server
}

// New builds a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		essRatio: factory.NewGauge(prometheus.GaugeOpts{
			Name: "smc_ess_ratio",
			Help: "Effective sample size divided by ensemble size at the last assimilation step.",
		}),
		sigma: factory.NewGauge(prometheus.GaugeOpts{
			Name: "smc_sigma",
			Help: "Likelihood covariance scale committed by the ESS controller.",
		}),
		iteration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "smc_iteration",
			Help: "Current iteration index k.",
		}),
		gmmComponentsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "smc_gmm_components_active",
			Help: "Number of mixture components with non-negligible weight after the last GMM fit.",
		}),
	}
}

// Observe records one committed iteration's results.
func (r *Recorder) Observe(iteration int, essRatio, sigma float64, activeComponents int) {
	if r == nil {
		return
	}
	r.iteration.Set(float64(iteration))
	r.essRatio.Set(essRatio)
	r.sigma.Set(sigma)
	r.gmmComponentsActive.Set(float64(activeComponents))
}

// Serve starts an HTTP server exposing /metrics on addr. It runs until
// ctx is canceled, then shuts down. This is strictly observational --
// no driver decision depends on whether it is ever called.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	if r == nil || addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	r.server = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- r.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return r.server.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
