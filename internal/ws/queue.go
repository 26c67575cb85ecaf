package ws

import (
	"sync"

	"main/pkg/exception"
)

// Queue is the bounded, non-blocking outbound queue of one connection.
// When full, the incoming payload is dropped so fanout never blocks on a
// slow client.
type Queue struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
	drops  uint64
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan []byte, capacity)}
}

// TryPush enqueues a payload without blocking. The closed check and the send
// happen under mu so a concurrent Close cannot close the channel in between.
func (q *Queue) TryPush(payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return exception.ErrWebSocketConnectionClose
	}
	select {
	case q.ch <- payload:
		return nil
	default:
		q.drops++
		return exception.ErrWebSocketQueueFull
	}
}

// Close stops the queue from accepting new payloads.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// C exposes the receive side for the write loop.
func (q *Queue) C() <-chan []byte {
	return q.ch
}

// Drops returns the number of payloads dropped on overflow.
func (q *Queue) Drops() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drops
}
