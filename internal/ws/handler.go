package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"

	"main/internal/registry"
)

// Handler upgrades HTTP requests into registry-attached connections.
type Handler struct {
	reg       *registry.Registry
	upgrader  websocket.Upgrader
	queueSize int
}

// NewHandler builds the upgrade handler. Origin checks are assumed to be
// handled upstream along with authentication.
func NewHandler(reg *registry.Registry, queueSize int) *Handler {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Handler{
		reg: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		queueSize: queueSize,
	}
}

// ServeHTTP implements the GET /ws endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logs.Warnf("ws upgrade failed: %+v", err)
		return
	}
	conn := newConn(uuid.NewString(), sock, h.reg, h.queueSize)
	logs.Infof("ws %s: connected from %s", conn.ID(), r.RemoteAddr)
	go conn.run()
}
