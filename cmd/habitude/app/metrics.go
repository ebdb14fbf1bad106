package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obriencj/koji-habitude-go/pkg/logger"
)

// serveMetrics exposes the process's default Prometheus registry on
// addr for the lifetime of the process; errors are logged, not fatal,
// since metrics are an optional observability aid (SPEC_FULL.md section B).
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec
		logger.Errorf("metrics server on %s stopped: %v", addr, err)
	}
}
