package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/registry"
)

type captureSender struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
}

func (c *captureSender) ID() string { return c.id }

func (c *captureSender) TrySend(payload []byte) bool {
	c.mu.Lock()
	c.frames = append(c.frames, payload)
	c.mu.Unlock()
	return true
}

func (c *captureSender) last() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func TestNotifyDeliversFrame(t *testing.T) {
	reg := registry.New()
	c1 := &captureSender{id: "c1"}
	c2 := &captureSender{id: "c2"}
	reg.Attach(c1)
	reg.Attach(c2)
	reg.Subscribe("c1", "u1", "process", "42")

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	p := NewPublisher(reg, func() time.Time { return now })

	delivered, err := p.Notify("process", "42", map[string]string{"stage": "quality_assessment"})
	require.NoError(t, err)
	require.Equal(t, 1, delivered)

	var frame UpdateFrame
	require.NoError(t, sonic.Unmarshal(c1.last(), &frame))
	assert.Equal(t, "process_update", frame.Type)
	assert.Equal(t, "42", frame.EntityID)
	assert.Equal(t, uint64(1), frame.Seq)
	payload, ok := frame.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "quality_assessment", payload["stage"])

	// c2 holds no subscription and receives nothing.
	assert.Nil(t, c2.last())
}

func TestNotifySequencePerEntityKey(t *testing.T) {
	reg := registry.New()
	p := NewPublisher(reg, nil)

	for i := 0; i < 3; i++ {
		_, err := p.Notify("process", "1", nil)
		require.NoError(t, err)
	}
	_, err := p.Notify("process", "2", nil)
	require.NoError(t, err)
	_, err = p.Notify("receipt", "1", nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), p.Seq("process", "1"))
	assert.Equal(t, uint64(1), p.Seq("process", "2"))
	assert.Equal(t, uint64(1), p.Seq("receipt", "1"))
	assert.Equal(t, uint64(0), p.Seq("loan", "9"))
}

func TestNotifyNobodySubscribedIsNoOp(t *testing.T) {
	p := NewPublisher(registry.New(), nil)
	delivered, err := p.Notify("process", "42", map[string]int{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
	// Sequence still advances: it counts mutations, not deliveries.
	assert.Equal(t, uint64(1), p.Seq("process", "42"))
}

func TestNotifyEmptyKeyRejected(t *testing.T) {
	p := NewPublisher(registry.New(), nil)
	_, err := p.Notify("", "42", nil)
	assert.Error(t, err)
	_, err = p.Notify("process", "", nil)
	assert.Error(t, err)
}

func TestNotifyConcurrentSequencesMonotonic(t *testing.T) {
	p := NewPublisher(registry.New(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 250; j++ {
				_, _ = p.Notify("process", "hot", nil)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(2000), p.Seq("process", "hot"))
}
