package health

import (
	"time"

	"main/internal/breaker"
	"main/internal/inbound"
	"main/internal/registry"
)

const (
	// StatusHealthy is reported when every webhook and module is healthy.
	StatusHealthy = "healthy"
	// StatusDegraded is reported otherwise.
	StatusDegraded = "degraded"

	// webhookHealthyRate is the minimum success rate for a healthy endpoint.
	webhookHealthyRate = 0.95
)

// WebhookHealth is one endpoint's health summary.
type WebhookHealth struct {
	Endpoint    string  `json:"endpoint"`
	SuccessRate float64 `json:"successRate"`
	Healthy     bool    `json:"healthy"`
}

// ModuleHealth is one outbound module's health summary.
type ModuleHealth struct {
	ModuleName   string `json:"moduleName"`
	Healthy      bool   `json:"healthy"`
	BreakerState string `json:"circuitBreakerState"`
}

// Snapshot is a point-in-time aggregation of every monitored surface.
type Snapshot struct {
	Status      string            `json:"status"`
	Webhooks    []WebhookHealth   `json:"webhooks"`
	Modules     []ModuleHealth    `json:"modules"`
	WebSocket   registry.Counters `json:"websocket"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// Aggregator combines webhook, outbound and connection metrics into one
// read-only status view. It has no state and no side effects.
type Aggregator struct {
	webhooks *inbound.Collector
	outbound *breaker.Monitor
	registry *registry.Registry
	clock    func() time.Time
}

// NewAggregator wires the aggregator over its sources.
func NewAggregator(webhooks *inbound.Collector, outbound *breaker.Monitor, reg *registry.Registry, clock func() time.Time) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{webhooks: webhooks, outbound: outbound, registry: reg, clock: clock}
}

// SystemHealth computes the current overall status from fresh snapshots.
func (a *Aggregator) SystemHealth() Snapshot {
	if a == nil {
		return Snapshot{Status: StatusDegraded}
	}
	snap := Snapshot{
		Status:      StatusHealthy,
		GeneratedAt: a.clock(),
		WebSocket:   a.registry.Snapshot(),
	}

	for _, metric := range a.webhooks.Metrics() {
		// An endpoint that has never been called cannot be failing.
		rate := 1.0
		if metric.TotalRequests > 0 {
			rate = float64(metric.SuccessCount) / float64(metric.TotalRequests)
		}
		healthy := rate >= webhookHealthyRate
		if !healthy {
			snap.Status = StatusDegraded
		}
		snap.Webhooks = append(snap.Webhooks, WebhookHealth{
			Endpoint:    metric.Endpoint,
			SuccessRate: rate,
			Healthy:     healthy,
		})
	}

	for _, metric := range a.outbound.Metrics() {
		healthy := metric.IsHealthy && metric.BreakerState != breaker.StateOpen.String()
		if !healthy {
			snap.Status = StatusDegraded
		}
		snap.Modules = append(snap.Modules, ModuleHealth{
			ModuleName:   metric.ModuleName,
			Healthy:      healthy,
			BreakerState: metric.BreakerState,
		})
	}
	return snap
}
