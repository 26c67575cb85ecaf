package notify

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/registry"
)

const seqShardCount = 16

// UpdateFrame is the server-to-client frame for one entity mutation.
type UpdateFrame struct {
	Type       string    `json:"type"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Seq        uint64    `json:"sequenceNumber"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

type seqShard struct {
	mu   sync.Mutex
	next map[registry.Key]uint64
}

// Publisher turns a committed domain mutation into an update frame and fans
// it out through the registry. Sequence numbers are monotonic per entity key
// and serve only as a gap-detection hint; there is no queue and no retry.
type Publisher struct {
	reg    *registry.Registry
	shards [seqShardCount]seqShard
	clock  func() time.Time
}

// NewPublisher builds a publisher over the registry.
func NewPublisher(reg *registry.Registry, clock func() time.Time) *Publisher {
	if clock == nil {
		clock = time.Now
	}
	p := &Publisher{reg: reg, clock: clock}
	for i := range p.shards {
		p.shards[i].next = make(map[registry.Key]uint64)
	}
	return p
}

// Notify is invoked synchronously after a domain mutation commits.
// Returns the number of connections the frame was delivered to.
func (p *Publisher) Notify(entityType, entityID string, payload any) (int, error) {
	if p == nil || p.reg == nil {
		return 0, errors.New("notify: nil publisher")
	}
	if entityType == "" || entityID == "" {
		return 0, errors.New("notify: empty entity key")
	}

	frame := UpdateFrame{
		Type:       entityType + "_update",
		EntityType: entityType,
		EntityID:   entityID,
		Seq:        p.nextSeq(registry.Key{EntityType: entityType, EntityID: entityID}),
		Timestamp:  p.clock(),
		Payload:    payload,
	}
	raw, err := sonic.Marshal(frame)
	if err != nil {
		return 0, errors.Wrap(err, "marshal update frame")
	}

	delivered := p.reg.Publish(entityType, entityID, raw)
	if delivered > 0 {
		logs.Debugf("notify %s/%s seq=%d delivered=%d", entityType, entityID, frame.Seq, delivered)
	}
	return delivered, nil
}

// Seq returns the last sequence assigned for the key, zero when none.
func (p *Publisher) Seq(entityType, entityID string) uint64 {
	if p == nil {
		return 0
	}
	key := registry.Key{EntityType: entityType, EntityID: entityID}
	sh := &p.shards[p.shardIndex(key)]
	sh.mu.Lock()
	seq := sh.next[key]
	sh.mu.Unlock()
	return seq
}

func (p *Publisher) nextSeq(key registry.Key) uint64 {
	sh := &p.shards[p.shardIndex(key)]
	sh.mu.Lock()
	sh.next[key]++
	seq := sh.next[key]
	sh.mu.Unlock()
	return seq
}

func (p *Publisher) shardIndex(key registry.Key) int {
	h := fnv.New32a()
	h.Write([]byte(key.EntityType))
	h.Write([]byte{0})
	h.Write([]byte(key.EntityID))
	return int(h.Sum32() % seqShardCount)
}
