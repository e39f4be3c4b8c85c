package core

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// HubMetrics exposes Prometheus gauges/counters for the hub's operational
// state. It mirrors the teacher's HealthLogger (core/system_health_logging.go)
// but reports router-level quantities (lock, chain and VLP counts, pending
// requests, ack errors, swap hops) instead of blockchain-node ones.
type HubMetrics struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	log      *logrus.Logger

	routerLocked    prometheus.Gauge
	chainCount      prometheus.Gauge
	vlpCount        prometheus.Gauge
	pendingRequests prometheus.Gauge
	ackErrors       prometheus.Counter
	swapsTotal      prometheus.Counter
}

// NewHubMetrics builds a HubMetrics with its own Prometheus registry so
// multiple instances (e.g. in tests) never collide on global registration.
func NewHubMetrics(log *logrus.Logger) *HubMetrics {
	if log == nil {
		log = logrus.New()
	}
	reg := prometheus.NewRegistry()
	m := &HubMetrics{
		registry: reg,
		log:      log,
		routerLocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_router_locked",
			Help: "1 if the router global lock is engaged, else 0",
		}),
		chainCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_chain_count",
			Help: "Number of chains registered with the router",
		}),
		vlpCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_vlp_count",
			Help: "Number of VLPs instantiated",
		}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_pending_requests",
			Help: "Number of in-flight pending requests awaiting ack or timeout",
		}),
		ackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_ack_errors_total",
			Help: "Total number of error-acks processed",
		}),
		swapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_swaps_total",
			Help: "Total number of swap hops executed across all VLPs",
		}),
	}
	reg.MustRegister(m.routerLocked, m.chainCount, m.vlpCount, m.pendingRequests, m.ackErrors, m.swapsTotal)
	return m
}

// RecordRouterState updates the router-derived gauges.
func (m *HubMetrics) RecordRouterState(locked bool, chains, vlps, pending int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if locked {
		m.routerLocked.Set(1)
	} else {
		m.routerLocked.Set(0)
	}
	m.chainCount.Set(float64(chains))
	m.vlpCount.Set(float64(vlps))
	m.pendingRequests.Set(float64(pending))
}

// IncAckError increments the error-ack counter.
func (m *HubMetrics) IncAckError() { m.ackErrors.Inc() }

// IncSwap increments the swap-hop counter.
func (m *HubMetrics) IncSwap() { m.swapsTotal.Inc() }

// StartServer exposes the registry on /metrics at addr, matching the
// teacher's HealthLogger.StartMetricsServer.
func (m *HubMetrics) StartServer(addr string) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.log.WithError(err).Error("metrics server stopped")
		}
	}()
	return srv, nil
}

// Shutdown gracefully stops the metrics HTTP server.
func (m *HubMetrics) Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}

// RunCollector periodically invokes collect until ctx is cancelled, the
// same ticker-driven shape as HealthLogger.RunMetricsCollector.
func (m *HubMetrics) RunCollector(ctx context.Context, interval time.Duration, collect func() (locked bool, chains, vlps, pending int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			locked, chains, vlps, pending := collect()
			m.RecordRouterState(locked, chains, vlps, pending)
		case <-ctx.Done():
			return
		}
	}
}
