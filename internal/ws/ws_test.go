package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/notify"
	"main/internal/registry"
	"main/pkg/exception"
)

func TestQueueOverflowDropsNewest(t *testing.T) {
	q := NewQueue(2)
	require.NoError(t, q.TryPush([]byte("a")))
	require.NoError(t, q.TryPush([]byte("b")))
	err := q.TryPush([]byte("c"))
	assert.ErrorIs(t, err, exception.ErrWebSocketQueueFull)
	assert.Equal(t, uint64(1), q.Drops())

	// Queue contents are untouched by the drop.
	assert.Equal(t, []byte("a"), <-q.C())
	assert.Equal(t, []byte("b"), <-q.C())
}

func TestQueueClosedRejects(t *testing.T) {
	q := NewQueue(2)
	q.Close()
	q.Close() // idempotent
	err := q.TryPush([]byte("a"))
	assert.ErrorIs(t, err, exception.ErrWebSocketConnectionClose)
}

func TestQueueConcurrentPushAndClose(t *testing.T) {
	for i := 0; i < 200; i++ {
		q := NewQueue(1)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 50; j++ {
				_ = q.TryPush([]byte("x"))
			}
		}()
		q.Close()
		<-done

		// Once closed, pushes must report the closed queue, never panic.
		assert.ErrorIs(t, q.TryPush([]byte("y")), exception.ErrWebSocketConnectionClose)
	}
}

func TestDecodeClientFrame(t *testing.T) {
	frame, err := DecodeClientFrame([]byte(`{"type":"subscribe","userId":"u1","entityType":"process","entityId":"42"}`))
	require.NoError(t, err)
	assert.Equal(t, "subscribe", frame.Type)
	assert.Equal(t, "42", frame.EntityID)

	_, err = DecodeClientFrame([]byte(`{"type":"shout","entityType":"process","entityId":"42"}`))
	assert.ErrorIs(t, err, exception.ErrWebSocketBadFrame)

	_, err = DecodeClientFrame([]byte(`{"type":"subscribe","entityType":"","entityId":"42"}`))
	assert.ErrorIs(t, err, exception.ErrWebSocketBadFrame)

	_, err = DecodeClientFrame([]byte(`not json`))
	assert.ErrorIs(t, err, exception.ErrWebSocketBadFrame)
}

// End-to-end: dial the handler, subscribe, publish through the notifier and
// read the update frame back off the socket.
func TestSubscribeReceivesUpdate(t *testing.T) {
	reg := registry.New()
	pub := notify.NewPublisher(reg, nil)
	srv := httptest.NewServer(NewHandler(reg, 16))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	dial := func() *websocket.Conn {
		sock, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return sock
	}
	c1 := dial()
	defer c1.Close()
	c2 := dial()
	defer c2.Close()

	require.NoError(t, c1.WriteJSON(ClientFrame{
		Type:       "subscribe",
		UserID:     "u1",
		EntityType: "process",
		EntityID:   "42",
	}))

	// Wait until the subscription lands.
	require.Eventually(t, func() bool {
		return reg.Snapshot().Subscriptions["process"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	delivered, err := pub.Notify("process", "42", map[string]string{"stage": "quality_assessment"})
	require.NoError(t, err)
	require.Equal(t, 1, delivered)

	_ = c1.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := c1.ReadMessage()
	require.NoError(t, err)

	var frame notify.UpdateFrame
	require.NoError(t, sonic.Unmarshal(raw, &frame))
	assert.Equal(t, "process_update", frame.Type)
	assert.Equal(t, "42", frame.EntityID)
	assert.Equal(t, uint64(1), frame.Seq)

	// c2 never subscribed: publishing again must not reach it.
	_ = c2.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = c2.ReadMessage()
	assert.Error(t, err, "expected read timeout for unsubscribed connection")
}

func TestDisconnectSweepsSubscriptions(t *testing.T) {
	reg := registry.New()
	srv := httptest.NewServer(NewHandler(reg, 16))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	sock, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.NoError(t, sock.WriteJSON(ClientFrame{
		Type:       "subscribe",
		UserID:     "u1",
		EntityType: "process",
		EntityID:   "7",
	}))
	require.Eventually(t, func() bool {
		return reg.Snapshot().Subscriptions["process"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sock.Close())
	require.Eventually(t, func() bool {
		snap := reg.Snapshot()
		return snap.ActiveConnections == 0 && len(snap.Subscriptions) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerRejectsPlainHTTP(t *testing.T) {
	srv := httptest.NewServer(NewHandler(registry.New(), 16))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
