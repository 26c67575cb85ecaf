/*
Core wires the realtime and resilience components into one runtime context.

# Module
  - subscription registry: routes live connections to watched entity keys
  - event publisher: turns committed domain mutations into update frames
  - outbound monitor: per-module circuit breaker around external calls
  - webhook collector: per-endpoint counters for inbound notifications
  - error ring: shared bounded sink for failure records
  - health aggregator: read-only status over all of the above

# Source
 1. domain mutations reported through Publisher.Notify
 2. webhook handler outcomes reported through Webhooks.RecordRequest
 3. outbound call outcomes reported through Outbound.GuardedCall

# Produce
  - update frames to subscribed WebSocket clients
  - read-only metrics and health snapshots to the admin surface

# Sharded
  - entity key hash (registry indexes, sequence counters)
*/
package core

import (
	"context"

	"main/internal/breaker"
	"main/internal/errlog"
	"main/internal/health"
	"main/internal/inbound"
	"main/internal/notify"
	"main/internal/ops"
	"main/internal/registry"
	"main/internal/store"
)

// Core holds every shared component of the service. Construct one per
// process (or per test) and inject it; there are no package globals.
type Core struct {
	Config    ops.Loaded
	Errors    *errlog.Ring
	Registry  *registry.Registry
	Publisher *notify.Publisher
	Outbound  *breaker.Monitor
	Webhooks  *inbound.Collector
	Health    *health.Aggregator
	Deposits  store.Store
}

// New builds a core from resolved configuration. deposits may be nil when
// the store feature is disabled.
func New(cfg ops.Loaded, deposits store.Store) *Core {
	ring := errlog.NewRing(
		errlog.WithCapacity(cfg.ErrCapacity),
		errlog.WithMaxAge(cfg.ErrMaxAge),
		errlog.WithPurgeInterval(cfg.ErrPurgeEvery),
	)

	specs := make([]breaker.ModuleSpec, 0, len(cfg.Modules))
	for _, mod := range cfg.Modules {
		spec := breaker.ModuleSpec{Name: mod.Name, BaseURL: mod.BaseURL}
		if mod.HealthPath != "" {
			spec.HealthURL = mod.BaseURL + mod.HealthPath
		}
		specs = append(specs, spec)
	}

	reg := registry.New()
	webhooks := inbound.NewCollector(cfg.Webhooks, ring, nil)
	outbound := breaker.NewMonitor(breaker.Config{
		Threshold:    cfg.Threshold,
		Cooldown:     cfg.Cooldown,
		ProbeTimeout: cfg.ProbeTimeout,
	}, specs, ring)

	return &Core{
		Config:    cfg,
		Errors:    ring,
		Registry:  reg,
		Publisher: notify.NewPublisher(reg, nil),
		Outbound:  outbound,
		Webhooks:  webhooks,
		Health:    health.NewAggregator(webhooks, outbound, reg, nil),
		Deposits:  deposits,
	}
}

// Run starts the background tasks and blocks until ctx is done.
func (c *Core) Run(ctx context.Context) {
	if c == nil {
		return
	}
	c.Errors.Run(ctx)
}
