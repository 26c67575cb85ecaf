package inbound

import (
	"sort"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/errlog"
)

const (
	// errorListCap is the hard cap on per-endpoint retained errors.
	errorListCap = 100
	// errorListTrim is the size the list is cut to once the cap is exceeded.
	errorListTrim = 50
)

// RequestError is one failed webhook delivery.
type RequestError struct {
	Endpoint   string    `json:"endpoint"`
	Message    string    `json:"message"`
	ErrorType  string    `json:"errorType"`
	StatusCode int       `json:"statusCode,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EndpointMetric is a point-in-time view of one endpoint's counters.
type EndpointMetric struct {
	Endpoint          string    `json:"endpoint"`
	SuccessCount      uint64    `json:"successCount"`
	FailureCount      uint64    `json:"failureCount"`
	TotalRequests     uint64    `json:"totalRequests"`
	AvgResponseTimeMs float64   `json:"avgResponseTime"`
	LastRequestAt     time.Time `json:"lastRequestAt"`
}

type endpoint struct {
	name          string
	success       uint64
	failure       uint64
	avgResponseMs float64
	lastRequestAt time.Time
	recentErrors  []RequestError
}

// Collector tracks per-inbound-endpoint counters and recent errors.
// Failures are additionally sunk into the shared error ring.
type Collector struct {
	mu        sync.Mutex
	endpoints map[string]*endpoint
	sink      *errlog.Ring
	clock     func() time.Time
}

// NewCollector builds a collector with the known endpoints pre-registered.
// Endpoints seen later are added lazily and never removed.
func NewCollector(known []string, sink *errlog.Ring, clock func() time.Time) *Collector {
	if clock == nil {
		clock = time.Now
	}
	c := &Collector{
		endpoints: make(map[string]*endpoint, len(known)),
		sink:      sink,
		clock:     clock,
	}
	for _, name := range known {
		if name != "" {
			c.endpoints[name] = &endpoint{name: name}
		}
	}
	return c
}

// RecordRequest updates the endpoint's counters and, on failure, appends to
// the capped error list and the global ring. Recording faults are swallowed:
// this path must never destabilize the webhook handler that calls it.
func (c *Collector) RecordRequest(name string, success bool, responseTime time.Duration, err error, kind errlog.Kind, statusCode int) {
	if c == nil || name == "" {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("webhook metrics %s: record panicked: %+v", name, r)
		}
	}()

	now, message, failed := c.apply(name, success, responseTime, err, kind, statusCode)
	if !failed {
		return
	}
	c.sink.Append(errlog.Entry{
		Timestamp:  now,
		Source:     "webhook:" + name,
		Message:    message,
		Kind:       kind,
		StatusCode: statusCode,
	})
}

// apply performs the locked mutation. The mutex is released by defer so a
// recovered fault in here cannot strand it and deadlock later callers.
func (c *Collector) apply(name string, success bool, responseTime time.Duration, err error, kind errlog.Kind, statusCode int) (now time.Time, message string, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now = c.clock()
	ep, ok := c.endpoints[name]
	if !ok {
		ep = &endpoint{name: name}
		c.endpoints[name] = ep
	}
	total := ep.success + ep.failure + 1
	ep.avgResponseMs = (ep.avgResponseMs*float64(total-1) + float64(responseTime)/float64(time.Millisecond)) / float64(total)
	ep.lastRequestAt = now
	if success {
		ep.success++
		return now, "", false
	}
	ep.failure++

	message = "webhook processing failed"
	if err != nil {
		message = err.Error()
	}
	ep.recentErrors = append(ep.recentErrors, RequestError{
		Endpoint:   name,
		Message:    message,
		ErrorType:  kind.String(),
		StatusCode: statusCode,
		OccurredAt: now,
	})
	if len(ep.recentErrors) > errorListCap {
		trimmed := make([]RequestError, errorListTrim)
		copy(trimmed, ep.recentErrors[len(ep.recentErrors)-errorListTrim:])
		ep.recentErrors = trimmed
	}
	return now, message, true
}

// Metrics returns a copy of every endpoint's counters, sorted by name.
func (c *Collector) Metrics() []EndpointMetric {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	out := make([]EndpointMetric, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		out = append(out, EndpointMetric{
			Endpoint:          ep.name,
			SuccessCount:      ep.success,
			FailureCount:      ep.failure,
			TotalRequests:     ep.success + ep.failure,
			AvgResponseTimeMs: ep.avgResponseMs,
			LastRequestAt:     ep.lastRequestAt,
		})
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}

// RecentErrors returns up to limit errors newest-first, optionally filtered
// to a single endpoint. limit <= 0 means no limit.
func (c *Collector) RecentErrors(limit int, name string) []RequestError {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	var all []RequestError
	for _, ep := range c.endpoints {
		if name != "" && ep.name != name {
			continue
		}
		all = append(all, ep.recentErrors...)
	}
	c.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].OccurredAt.After(all[j].OccurredAt) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
