package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/recordstore"

	"go.uber.org/zap"
)

// HealthHandler Record Store 连通性检测
type HealthHandler struct {
	store   recordstore.Store
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthHandler(store recordstore.Store, timeout time.Duration, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, timeout: timeout, logger: logger}
}

// ProbeRecordStore GET /api/v1/health/record-store
// 检测失败返回 503，body 中仍带检测结果
func (h *HealthHandler) ProbeRecordStore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result := recordstore.Probe(ctx, h.store)
	if !result.Success {
		h.logger.Warn("Record store probe failed", zap.String("message", result.Message))
		writeJSON(w, http.StatusServiceUnavailable, FailWith(result.Message, result))
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}
