package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"main/internal/core"
	"main/internal/ws"
)

// NewRouter builds the service router: the WebSocket endpoint plus the
// read-only admin/observability surface.
func NewRouter(c *core.Core) http.Handler {
	h := &Handler{core: c}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/ws", ws.NewHandler(c.Registry, c.Config.WSQueueSize))

	r.Get("/system-health", h.systemHealth)
	r.Get("/webhook-metrics", h.webhookMetrics)
	r.Get("/outbound-metrics", h.outboundMetrics)
	r.Get("/error-logs", h.errorLogs)
	r.Get("/websocket-metrics", h.websocketMetrics)
	r.Get("/deposits/{id}", h.depositProcess)

	return r
}
