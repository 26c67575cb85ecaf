package breaker

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/errlog"
	"main/pkg/exception"
)

const (
	// DefaultThreshold is the consecutive-failure count that trips a breaker.
	DefaultThreshold = 5
	// DefaultCooldown is how long an open breaker waits before allowing a probe.
	DefaultCooldown = 60 * time.Second
	// DefaultProbeTimeout bounds a health probe request.
	DefaultProbeTimeout = 5 * time.Second
)

// ModuleSpec declares an outbound module at construction time.
type ModuleSpec struct {
	Name      string
	BaseURL   string
	HealthURL string
}

// ModuleMetric is a point-in-time view of one module's counters.
type ModuleMetric struct {
	ModuleName    string    `json:"moduleName"`
	URL           string    `json:"url"`
	SuccessCount  uint64    `json:"successCount"`
	FailureCount  uint64    `json:"failureCount"`
	AvgLatencyMs  float64   `json:"avgResponseTime"`
	LastSuccessAt time.Time `json:"lastSuccessAt"`
	LastFailureAt time.Time `json:"lastFailureAt"`
	IsHealthy     bool      `json:"isHealthy"`
	BreakerState  string    `json:"circuitBreakerState"`
}

// module holds the mutable per-module record. All fields are guarded by mu
// so the state machine and counters move together under concurrent callers.
type module struct {
	mu sync.Mutex

	name      string
	baseURL   string
	healthURL string

	success             uint64
	failure             uint64
	avgLatencyMs        float64
	consecutiveFailures int
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	state               State
}

// Config tunes the monitor.
type Config struct {
	Threshold    int
	Cooldown     time.Duration
	ProbeTimeout time.Duration
	Clock        func() time.Time
}

// Monitor gates and records calls to external modules, one breaker each.
// The module set is fixed at construction; unknown names are neutral no-ops.
type Monitor struct {
	cfg     Config
	modules map[string]*module
	sink    *errlog.Ring
	client  *http.Client
}

// NewMonitor builds a monitor for the given module specs.
func NewMonitor(cfg Config, specs []ModuleSpec, sink *errlog.Ring) *Monitor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	modules := make(map[string]*module, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			continue
		}
		modules[spec.Name] = &module{
			name:      spec.Name,
			baseURL:   spec.BaseURL,
			healthURL: spec.HealthURL,
			state:     StateClosed,
		}
	}
	return &Monitor{
		cfg:     cfg,
		modules: modules,
		sink:    sink,
		client:  &http.Client{Timeout: cfg.ProbeTimeout},
	}
}

// RecordCall feeds one outbound call outcome into the module's counters and
// state machine. Unknown module names are ignored.
func (m *Monitor) RecordCall(name string, success bool, latency time.Duration, callErr error) {
	if m == nil {
		return
	}
	mod, ok := m.modules[name]
	if !ok {
		return
	}
	now := m.cfg.Clock()

	mod.mu.Lock()
	m.refreshLocked(mod, now)
	total := mod.success + mod.failure + 1
	mod.avgLatencyMs = (mod.avgLatencyMs*float64(total-1) + float64(latency)/float64(time.Millisecond)) / float64(total)
	if success {
		mod.success++
		mod.consecutiveFailures = 0
		mod.lastSuccessAt = now
		if mod.state == StateHalfOpen {
			mod.state = StateClosed
			logs.Infof("breaker %s: half_open -> closed", mod.name)
		}
		mod.mu.Unlock()
		return
	}

	mod.failure++
	mod.consecutiveFailures++
	mod.lastFailureAt = now
	switch mod.state {
	case StateClosed:
		if mod.consecutiveFailures >= m.cfg.Threshold {
			mod.state = StateOpen
			logs.Warnf("breaker %s: closed -> open after %d consecutive failures", mod.name, mod.consecutiveFailures)
		}
	case StateHalfOpen:
		mod.state = StateOpen
		logs.Warnf("breaker %s: half_open -> open, probe failed", mod.name)
	}
	mod.mu.Unlock()

	m.record(name, callErr)
}

// IsOpen reports whether calls to the module should be rejected. The open
// state is re-evaluated lazily: once the cooldown has elapsed since the last
// failure, the breaker moves to half-open before answering. A module that
// receives no further calls therefore stays reported open until next access.
func (m *Monitor) IsOpen(name string) bool {
	if m == nil {
		return false
	}
	mod, ok := m.modules[name]
	if !ok {
		return false
	}
	now := m.cfg.Clock()

	mod.mu.Lock()
	defer mod.mu.Unlock()
	m.refreshLocked(mod, now)
	return mod.state == StateOpen
}

// refreshLocked applies the lazy cooldown transition. Both IsOpen and
// RecordCall observe half-open once the cooldown has elapsed; without the
// RecordCall side a probe success landing before any IsOpen would be
// swallowed and the breaker stuck half-open. Caller holds mod.mu.
func (m *Monitor) refreshLocked(mod *module, now time.Time) {
	if mod.state == StateOpen && now.Sub(mod.lastFailureAt) > m.cfg.Cooldown {
		mod.state = StateHalfOpen
		logs.Infof("breaker %s: open -> half_open, cooldown elapsed", mod.name)
	}
}

// State returns the current (lazily refreshed) breaker state.
func (m *Monitor) State(name string) (State, bool) {
	if m == nil {
		return StateClosed, false
	}
	mod, ok := m.modules[name]
	if !ok {
		return StateClosed, false
	}
	m.IsOpen(name)
	mod.mu.Lock()
	state := mod.state
	mod.mu.Unlock()
	return state, true
}

// GuardedCall wraps an outbound call: when the breaker is open it returns a
// synthetic failure without invoking fn, otherwise it measures fn and records
// the outcome. Unknown modules pass through unrecorded.
func (m *Monitor) GuardedCall(ctx context.Context, name string, fn func(context.Context) error) error {
	if m == nil || fn == nil {
		return exception.ErrNilInstance
	}
	if _, ok := m.modules[name]; !ok {
		return fn(ctx)
	}
	if m.IsOpen(name) {
		return exception.ErrCircuitOpen
	}
	start := m.cfg.Clock()
	err := fn(ctx)
	m.RecordCall(name, err == nil, m.cfg.Clock().Sub(start), err)
	return err
}

// HealthCheck probes the module's health endpoint unless the breaker is open,
// in which case it fails fast without network I/O. The probe outcome is fed
// back into RecordCall.
func (m *Monitor) HealthCheck(ctx context.Context, name string) error {
	if m == nil {
		return exception.ErrNilInstance
	}
	mod, ok := m.modules[name]
	if !ok {
		return exception.ErrUnknownModule
	}
	if m.IsOpen(name) {
		return exception.ErrCircuitOpen
	}
	if mod.healthURL == "" {
		return exception.ErrProbeNotConfigured
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	start := m.cfg.Clock()
	err := m.probe(probeCtx, mod.healthURL)
	m.RecordCall(name, err == nil, m.cfg.Clock().Sub(start), err)
	return err
}

// Metrics returns a copy of every module's counters.
func (m *Monitor) Metrics() []ModuleMetric {
	if m == nil {
		return nil
	}
	out := make([]ModuleMetric, 0, len(m.modules))
	for _, name := range m.names() {
		mod := m.modules[name]
		mod.mu.Lock()
		out = append(out, ModuleMetric{
			ModuleName:    mod.name,
			URL:           mod.baseURL,
			SuccessCount:  mod.success,
			FailureCount:  mod.failure,
			AvgLatencyMs:  mod.avgLatencyMs,
			LastSuccessAt: mod.lastSuccessAt,
			LastFailureAt: mod.lastFailureAt,
			IsHealthy:     mod.state != StateOpen && mod.consecutiveFailures < m.cfg.Threshold,
			BreakerState:  mod.state.String(),
		})
		mod.mu.Unlock()
	}
	return out
}

func (m *Monitor) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return exception.ErrProbeBadStatus
	}
	return nil
}

// record sinks a failure into the shared ring buffer. Recording faults must
// never destabilize the caller, so panics are swallowed and logged.
func (m *Monitor) record(name string, callErr error) {
	if m.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("breaker %s: record failure panicked: %+v", name, r)
		}
	}()
	message := "call failed"
	if callErr != nil {
		message = callErr.Error()
	}
	m.sink.Append(errlog.Entry{
		Source:  "module:" + name,
		Message: message,
		Kind:    errlog.Classify(callErr, 0),
	})
}

func (m *Monitor) names() []string {
	names := make([]string, 0, len(m.modules))
	for name := range m.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
