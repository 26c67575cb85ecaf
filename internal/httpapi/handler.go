package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/yanun0323/logs"

	"main/internal/core"
	"main/pkg/exception"
)

// Handler serves the read-only admin endpoints off the core context.
type Handler struct {
	core *core.Core
}

func (h *Handler) systemHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Health.SystemHealth())
}

func (h *Handler) webhookMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Webhooks.Metrics())
}

func (h *Handler) outboundMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Outbound.Metrics())
}

func (h *Handler) errorLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
	source := ""
	if endpoint := r.URL.Query().Get("endpoint"); endpoint != "" {
		source = "webhook:" + endpoint
	}
	writeJSON(w, http.StatusOK, h.core.Errors.Recent(limit, source))
}

func (h *Handler) websocketMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Registry.Snapshot())
}

func (h *Handler) depositProcess(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deposit id")
		return
	}
	if h.core.Deposits == nil {
		writeError(w, http.StatusNotImplemented, exception.ErrStoreDisabled.Error())
		return
	}
	row, err := h.core.Deposits.DepositProcess(r.Context(), id)
	if err != nil {
		if errors.Is(err, exception.ErrDepositNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	raw, err := sonic.Marshal(body)
	if err != nil {
		logs.Errorf("httpapi: marshal response: %+v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
