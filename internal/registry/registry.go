package registry

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/yanun0323/logs"
)

// shardCount is the number of key-hash shards. Keys on unrelated entities
// never contend on the same lock.
const shardCount = 16

// Key identifies one watched entity.
type Key struct {
	EntityType string
	EntityID   string
}

// Subscription is one connection's registered interest in an entity.
type Subscription struct {
	ConnID     string
	UserID     string
	EntityType string
	EntityID   string
}

// Sender is the registry's view of a live connection. TrySend returns false
// only when the connection is no longer usable; a full outbound queue drops
// the frame instead so a slow client cannot fail its own subscription.
type Sender interface {
	ID() string
	TrySend(payload []byte) bool
}

// Counters is a snapshot of connection-layer counters.
type Counters struct {
	ActiveConnections int64          `json:"activeConnections"`
	TotalConnections  uint64         `json:"totalConnections"`
	MessagesSent      uint64         `json:"messagesSent"`
	MessagesReceived  uint64         `json:"messagesReceived"`
	Subscriptions     map[string]int `json:"subscriptionsByEntityType"`
}

type shard struct {
	mu     sync.Mutex
	byKey  map[Key]map[string]Sender
	byConn map[string]map[Key]Subscription
}

// Registry maps live connections to the entity keys they watch and fans
// update frames out to them. It holds senders, never connection internals.
type Registry struct {
	shards [shardCount]shard

	connMu sync.Mutex
	conns  map[string]Sender

	active   atomic.Int64
	total    atomic.Uint64
	sent     atomic.Uint64
	received atomic.Uint64
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{conns: make(map[string]Sender)}
	for i := range r.shards {
		r.shards[i].byKey = make(map[Key]map[string]Sender)
		r.shards[i].byConn = make(map[string]map[Key]Subscription)
	}
	return r
}

// Attach registers a live connection. Must be called once on transport open
// before any Subscribe for that connection.
func (r *Registry) Attach(s Sender) {
	if r == nil || s == nil {
		return
	}
	r.connMu.Lock()
	_, exists := r.conns[s.ID()]
	r.conns[s.ID()] = s
	r.connMu.Unlock()
	if !exists {
		r.active.Add(1)
		r.total.Add(1)
	}
}

// Subscribe idempotently records interest in (entityType, entityID).
func (r *Registry) Subscribe(connID, userID, entityType, entityID string) {
	if r == nil || connID == "" || entityType == "" || entityID == "" {
		return
	}
	r.connMu.Lock()
	sender, ok := r.conns[connID]
	r.connMu.Unlock()
	if !ok {
		return
	}

	key := Key{EntityType: entityType, EntityID: entityID}
	sh := r.shardFor(key)
	sh.mu.Lock()
	senders := sh.byKey[key]
	if senders == nil {
		senders = make(map[string]Sender)
		sh.byKey[key] = senders
	}
	senders[connID] = sender

	subs := sh.byConn[connID]
	if subs == nil {
		subs = make(map[Key]Subscription)
		sh.byConn[connID] = subs
	}
	subs[key] = Subscription{ConnID: connID, UserID: userID, EntityType: entityType, EntityID: entityID}
	sh.mu.Unlock()
}

// Unsubscribe idempotently removes interest in (entityType, entityID).
func (r *Registry) Unsubscribe(connID, entityType, entityID string) {
	if r == nil || connID == "" {
		return
	}
	key := Key{EntityType: entityType, EntityID: entityID}
	sh := r.shardFor(key)
	sh.mu.Lock()
	if senders, ok := sh.byKey[key]; ok {
		delete(senders, connID)
		if len(senders) == 0 {
			delete(sh.byKey, key)
		}
	}
	if subs, ok := sh.byConn[connID]; ok {
		delete(subs, key)
		if len(subs) == 0 {
			delete(sh.byConn, connID)
		}
	}
	sh.mu.Unlock()
}

// OnDisconnect removes the connection and every subscription keyed by it.
// Safe to call more than once; only the first call changes counters.
func (r *Registry) OnDisconnect(connID string) {
	if r == nil || connID == "" {
		return
	}
	r.connMu.Lock()
	_, existed := r.conns[connID]
	delete(r.conns, connID)
	r.connMu.Unlock()

	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for key := range sh.byConn[connID] {
			if senders, ok := sh.byKey[key]; ok {
				delete(senders, connID)
				if len(senders) == 0 {
					delete(sh.byKey, key)
				}
			}
		}
		delete(sh.byConn, connID)
		sh.mu.Unlock()
	}

	if existed {
		r.active.Add(-1)
	}
}

// Publish fans payload out to every subscriber of the key, best-effort.
// A failed send is an implicit disconnect and cleans up that connection.
// Returns the number of successful deliveries; zero subscribers is a no-op.
func (r *Registry) Publish(entityType, entityID string, payload []byte) int {
	if r == nil {
		return 0
	}
	key := Key{EntityType: entityType, EntityID: entityID}
	sh := r.shardFor(key)

	sh.mu.Lock()
	senders := make([]Sender, 0, len(sh.byKey[key]))
	for _, s := range sh.byKey[key] {
		senders = append(senders, s)
	}
	sh.mu.Unlock()

	delivered := 0
	for _, s := range senders {
		if s.TrySend(payload) {
			delivered++
			r.sent.Add(1)
			continue
		}
		logs.Infof("registry: send failed, dropping connection %s", s.ID())
		r.OnDisconnect(s.ID())
	}
	return delivered
}

// Subscriptions returns the current subscriptions of one connection.
func (r *Registry) Subscriptions(connID string) []Subscription {
	if r == nil {
		return nil
	}
	var out []Subscription
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for _, sub := range sh.byConn[connID] {
			out = append(out, sub)
		}
		sh.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

// IncReceived counts one inbound client frame.
func (r *Registry) IncReceived() {
	if r != nil {
		r.received.Add(1)
	}
}

// Snapshot returns the current connection-layer counters.
func (r *Registry) Snapshot() Counters {
	if r == nil {
		return Counters{}
	}
	byType := make(map[string]int)
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for key, senders := range sh.byKey {
			byType[key.EntityType] += len(senders)
		}
		sh.mu.Unlock()
	}
	return Counters{
		ActiveConnections: r.active.Load(),
		TotalConnections:  r.total.Load(),
		MessagesSent:      r.sent.Load(),
		MessagesReceived:  r.received.Load(),
		Subscriptions:     byType,
	}
}

func (r *Registry) shardFor(key Key) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.EntityType))
	h.Write([]byte{0})
	h.Write([]byte(key.EntityID))
	return &r.shards[h.Sum32()%shardCount]
}
