package health

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/breaker"
	"main/internal/errlog"
	"main/internal/inbound"
	"main/internal/registry"
)

func newFixture() (*inbound.Collector, *breaker.Monitor, *registry.Registry, *Aggregator) {
	sink := errlog.NewRing(errlog.WithCapacity(32))
	webhooks := inbound.NewCollector([]string{"warehouse", "quality"}, sink, nil)
	outbound := breaker.NewMonitor(breaker.Config{Threshold: 5, Cooldown: time.Minute}, []breaker.ModuleSpec{
		{Name: "warehouse", BaseURL: "http://warehouse.local"},
		{Name: "iot-gateway", BaseURL: "http://iot.local"},
	}, sink)
	reg := registry.New()
	return webhooks, outbound, reg, NewAggregator(webhooks, outbound, reg, nil)
}

func TestSystemHealthAllHealthy(t *testing.T) {
	webhooks, outbound, _, agg := newFixture()
	webhooks.RecordRequest("warehouse", true, time.Millisecond, nil, 0, 200)
	outbound.RecordCall("warehouse", true, time.Millisecond, nil)

	snap := agg.SystemHealth()
	assert.Equal(t, StatusHealthy, snap.Status)
	require.Len(t, snap.Webhooks, 2)
	require.Len(t, snap.Modules, 2)
}

func TestSystemHealthDegradedByWebhookRate(t *testing.T) {
	webhooks, _, _, agg := newFixture()
	for i := 0; i < 90; i++ {
		webhooks.RecordRequest("quality", true, time.Millisecond, nil, 0, 200)
	}
	for i := 0; i < 10; i++ {
		webhooks.RecordRequest("quality", false, time.Millisecond, errors.New("boom"), errlog.KindValidation, 400)
	}

	snap := agg.SystemHealth()
	assert.Equal(t, StatusDegraded, snap.Status)
	for _, wh := range snap.Webhooks {
		if wh.Endpoint == "quality" {
			assert.False(t, wh.Healthy)
			assert.InDelta(t, 0.90, wh.SuccessRate, 0.001)
		}
	}
}

func TestSystemHealthBoundaryRate(t *testing.T) {
	webhooks, _, _, agg := newFixture()
	for i := 0; i < 95; i++ {
		webhooks.RecordRequest("quality", true, time.Millisecond, nil, 0, 200)
	}
	for i := 0; i < 5; i++ {
		webhooks.RecordRequest("quality", false, time.Millisecond, errors.New("boom"), errlog.KindValidation, 400)
	}
	// Exactly 95% counts as healthy.
	assert.Equal(t, StatusHealthy, agg.SystemHealth().Status)
}

func TestSystemHealthDegradedByOpenBreaker(t *testing.T) {
	_, outbound, _, agg := newFixture()
	for i := 0; i < 5; i++ {
		outbound.RecordCall("iot-gateway", false, time.Millisecond, errors.New("down"))
	}

	snap := agg.SystemHealth()
	assert.Equal(t, StatusDegraded, snap.Status)
	for _, mod := range snap.Modules {
		if mod.ModuleName == "iot-gateway" {
			assert.False(t, mod.Healthy)
			assert.Equal(t, "open", mod.BreakerState)
		}
	}
}

func TestSystemHealthZeroTrafficIsHealthy(t *testing.T) {
	_, _, _, agg := newFixture()
	snap := agg.SystemHealth()
	for _, wh := range snap.Webhooks {
		assert.True(t, wh.Healthy)
	}
	assert.Equal(t, StatusHealthy, snap.Status)
}

func TestSystemHealthIncludesRegistryCounters(t *testing.T) {
	_, _, reg, agg := newFixture()
	reg.IncReceived()

	snap := agg.SystemHealth()
	assert.Equal(t, uint64(1), snap.WebSocket.MessagesReceived)
}
