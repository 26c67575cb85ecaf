package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"

	"main/internal/registry"
	"main/pkg/exception"
)

// ConnState tracks the transport lifecycle of a connection.
type ConnState uint8

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
)

// String returns the wire label for the state.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	// writeWait bounds a single socket write.
	writeWait = 5 * time.Second
	// pongWait is how long we tolerate a silent peer.
	pongWait = 60 * time.Second
	// pingInterval must be shorter than pongWait.
	pingInterval = 30 * time.Second
	// DefaultQueueSize is the per-connection outbound queue capacity.
	DefaultQueueSize = 256
)

// Conn owns one client WebSocket. The registry sees it only through the
// Sender interface; all socket access stays inside this type.
type Conn struct {
	id string

	sock     *websocket.Conn
	queue    *Queue
	reg      *registry.Registry
	state    atomic.Uint32
	lastSeen atomic.Int64

	closeOnce sync.Once
}

var _ registry.Sender = (*Conn)(nil)

func newConn(id string, sock *websocket.Conn, reg *registry.Registry, queueSize int) *Conn {
	c := &Conn{
		id:    id,
		sock:  sock,
		queue: NewQueue(queueSize),
		reg:   reg,
	}
	c.state.Store(uint32(StateConnecting))
	c.touch()
	return c
}

// ID returns the connection id.
func (c *Conn) ID() string { return c.id }

// State returns the current lifecycle state.
func (c *Conn) State() ConnState { return ConnState(c.state.Load()) }

// LastSeenAt returns the time of the last inbound activity.
func (c *Conn) LastSeenAt() time.Time { return time.Unix(0, c.lastSeen.Load()) }

// TrySend queues a payload for delivery. It returns false only when the
// connection is closed; overflow drops the payload and keeps the
// subscription alive.
func (c *Conn) TrySend(payload []byte) bool {
	if c == nil || c.State() >= StateClosing {
		return false
	}
	switch err := c.queue.TryPush(payload); err {
	case nil:
		return true
	case exception.ErrWebSocketQueueFull:
		logs.Warnf("ws %s: outbound queue full, frame dropped (%d total)", c.id, c.queue.Drops())
		return true
	default:
		return false
	}
}

// run services the connection until either loop fails, then tears down.
func (c *Conn) run() {
	c.state.Store(uint32(StateOpen))
	c.reg.Attach(c)

	done := make(chan struct{})
	go func() {
		c.writeLoop(done)
	}()
	c.readLoop()
	close(done)
	c.Close()
}

// Close tears the connection down exactly once: state moves through Closing
// to Closed, the socket closes, and the registry sweeps every subscription.
func (c *Conn) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.state.Store(uint32(StateClosing))
		c.queue.Close()
		_ = c.sock.Close()
		c.reg.OnDisconnect(c.id)
		c.state.Store(uint32(StateClosed))
		logs.Infof("ws %s: closed", c.id)
	})
}

func (c *Conn) readLoop() {
	c.sock.SetReadLimit(1 << 16)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		c.touch()
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			return
		}
		c.touch()
		c.reg.IncReceived()

		frame, err := DecodeClientFrame(raw)
		if err != nil {
			logs.Warnf("ws %s: %+v", c.id, err)
			continue
		}
		switch frame.Type {
		case frameSubscribe:
			c.reg.Subscribe(c.id, frame.UserID, frame.EntityType, frame.EntityID)
		case frameUnsubscribe:
			c.reg.Unsubscribe(c.id, frame.EntityType, frame.EntityID)
		}
	}
}

func (c *Conn) writeLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case payload, ok := <-c.queue.C():
			if !ok {
				return
			}
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}
