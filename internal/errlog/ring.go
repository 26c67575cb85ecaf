package errlog

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCapacity bounds the number of retained entries.
	DefaultCapacity = 1000
	// DefaultMaxAge is the retention window for the periodic purge.
	DefaultMaxAge = 24 * time.Hour
	// DefaultPurgeInterval is how often the purge task runs.
	DefaultPurgeInterval = time.Hour
)

// Kind classifies a recorded failure.
type Kind uint8

const (
	KindNetwork Kind = iota
	KindValidation
	KindBusiness
	KindAuthentication
)

// String returns the wire label for the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindBusiness:
		return "business"
	case KindAuthentication:
		return "authentication"
	default:
		return "unknown"
	}
}

// Entry is one recorded failure.
type Entry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Source     string            `json:"source"`
	Message    string            `json:"message"`
	Kind       Kind              `json:"-"`
	KindLabel  string            `json:"errorType"`
	StatusCode int               `json:"statusCode,omitempty"`
	RequestID  string            `json:"requestId"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Ring is a bounded, age-pruned store of recent failure records.
// It is the common sink for the webhook collector and the outbound monitor.
type Ring struct {
	mu       sync.Mutex
	entries  []Entry
	head     int
	size     int
	capacity int

	maxAge        time.Duration
	purgeInterval time.Duration
	clock         func() time.Time
}

// Option mutates ring construction.
type Option func(*Ring)

// WithCapacity overrides the default capacity.
func WithCapacity(capacity int) Option {
	return func(r *Ring) {
		if capacity > 0 {
			r.capacity = capacity
		}
	}
}

// WithMaxAge overrides the purge retention window.
func WithMaxAge(age time.Duration) Option {
	return func(r *Ring) {
		if age > 0 {
			r.maxAge = age
		}
	}
}

// WithPurgeInterval overrides the purge cadence.
func WithPurgeInterval(interval time.Duration) Option {
	return func(r *Ring) {
		if interval > 0 {
			r.purgeInterval = interval
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Ring) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRing allocates a ring with the given options.
func NewRing(opts ...Option) *Ring {
	r := &Ring{
		capacity:      DefaultCapacity,
		maxAge:        DefaultMaxAge,
		purgeInterval: DefaultPurgeInterval,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.entries = make([]Entry, r.capacity)
	return r
}

// Append records an entry, evicting the oldest when full.
func (r *Ring) Append(e Entry) {
	if r == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = r.clock()
	}
	e.KindLabel = e.Kind.String()
	r.mu.Lock()
	idx := (r.head + r.size) % r.capacity
	r.entries[idx] = e
	if r.size < r.capacity {
		r.size++
	} else {
		r.head = (r.head + 1) % r.capacity
	}
	r.mu.Unlock()
}

// Len returns the current number of retained entries.
func (r *Ring) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	n := r.size
	r.mu.Unlock()
	return n
}

// Recent returns up to limit entries newest-first, optionally filtered by
// source prefix. limit <= 0 returns everything retained.
func (r *Ring) Recent(limit int, source string) []Entry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > r.size {
		limit = r.size
	}
	out := make([]Entry, 0, limit)
	for i := r.size - 1; i >= 0 && len(out) < limit; i-- {
		e := r.entries[(r.head+i)%r.capacity]
		if source != "" && !strings.HasPrefix(e.Source, source) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Purge drops entries older than the retention window.
// Returns the number of entries removed.
func (r *Ring) Purge() int {
	if r == nil {
		return 0
	}
	cutoff := r.clock().Add(-r.maxAge)
	r.mu.Lock()
	removed := 0
	for r.size > 0 {
		oldest := r.entries[r.head]
		if !oldest.Timestamp.Before(cutoff) {
			break
		}
		r.entries[r.head] = Entry{}
		r.head = (r.head + 1) % r.capacity
		r.size--
		removed++
	}
	r.mu.Unlock()
	return removed
}

// Run executes the periodic purge until the context is done.
func (r *Ring) Run(ctx context.Context) {
	if r == nil {
		return
	}
	ticker := time.NewTicker(r.purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Purge()
		}
	}
}
