package core

// Package-level singleton accessors, matching the teacher's
// core/helpers.go InitLedger/CurrentLedger pattern: each subsystem is
// initialized exactly once via sync.Once and retrieved thereafter
// through a Current* accessor, rather than threaded through every call
// site as an explicit parameter.

import "sync"

var (
	routerOnce sync.Once
	routerInst *Router

	vblOnce sync.Once
	vblInst *VirtualBalanceLedger

	transportOnce sync.Once
	transportInst *Transport

	metricsOnce sync.Once
	metricsInst *HubMetrics
)

// InitRouter installs the process-wide Router singleton. Subsequent
// calls are no-ops; use in cmd/ entry points only.
func InitRouter(r *Router) {
	routerOnce.Do(func() { routerInst = r })
}

// CurrentRouter returns the process-wide Router singleton, or nil if
// InitRouter has not yet been called.
func CurrentRouter() *Router { return routerInst }

// InitVBL installs the process-wide VirtualBalanceLedger singleton.
func InitVBL(v *VirtualBalanceLedger) {
	vblOnce.Do(func() { vblInst = v })
}

// CurrentVBL returns the process-wide VirtualBalanceLedger singleton.
func CurrentVBL() *VirtualBalanceLedger { return vblInst }

// InitTransport installs the process-wide Transport singleton.
func InitTransport(t *Transport) {
	transportOnce.Do(func() { transportInst = t })
}

// CurrentTransport returns the process-wide Transport singleton.
func CurrentTransport() *Transport { return transportInst }

// InitMetrics installs the process-wide HubMetrics singleton.
func InitMetrics(m *HubMetrics) {
	metricsOnce.Do(func() { metricsInst = m })
}

// CurrentMetrics returns the process-wide HubMetrics singleton.
func CurrentMetrics() *HubMetrics { return metricsInst }
