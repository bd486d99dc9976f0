// Package metrics exposes Prometheus counters for the simulation pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sim_orders_total", Help: "Orders filled by the simulated exchange"},
		[]string{"symbol", "side"},
	)
	RejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sim_rejections_total", Help: "Orders rejected by the simulated exchange"},
		[]string{"symbol", "side"},
	)
	StepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sim_steps_total", Help: "Simulation time steps processed"},
	)
	EmergencyStopsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sim_emergency_stops_total", Help: "Runs terminated by an emergency stop"},
	)
)

func init() {
	prometheus.MustRegister(OrdersTotal, RejectionsTotal, StepsTotal, EmergencyStopsTotal)
}

// Serve starts the /metrics endpoint in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
