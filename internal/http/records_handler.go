package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/datasync"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/export"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/metrics"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/report"

	"go.uber.org/zap"
)

const recordsBasePath = "/api/v1/breakdown-records"

// RecordsController 记录操作（*datasync.Controller 实现）
type RecordsController interface {
	Snapshot() datasync.State
	Records() []domain.BreakdownRecord
	AddRecord(ctx context.Context, record domain.BreakdownRecord) (domain.BreakdownRecord, string)
	UpdateRecord(ctx context.Context, id string, patch domain.RecordPatch) (domain.BreakdownRecord, bool, string)
	DeleteRecord(ctx context.Context, id string) (bool, string)
	Refresh(ctx context.Context) datasync.State
	DismissError()
}

// RecordsHandler 记录 CRUD、刷新、导出和统计
type RecordsHandler struct {
	ctrl   RecordsController
	now    func() time.Time
	logger *zap.Logger
}

func NewRecordsHandler(ctrl RecordsController, logger *zap.Logger) *RecordsHandler {
	return &RecordsHandler{
		ctrl:   ctrl,
		now:    time.Now,
		logger: logger,
	}
}

// mutationResult 写操作响应：记录和写操作后的 lastError
type mutationResult struct {
	Record    *domain.BreakdownRecord `json:"record,omitempty"`
	Deleted   bool                    `json:"deleted,omitempty"`
	LastError string                  `json:"lastError,omitempty"`
}

// ServeHTTP 按子路径分发
func (h *RecordsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sub := strings.Trim(strings.TrimPrefix(r.URL.Path, recordsBasePath), "/")

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.ListRecords(w, r)
		case http.MethodPost:
			h.CreateRecord(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case "refresh":
		h.requireMethod(w, r, http.MethodPost, h.Refresh)
		return
	case "dismiss-error":
		h.requireMethod(w, r, http.MethodPost, h.DismissError)
		return
	case "export":
		h.requireMethod(w, r, http.MethodGet, h.Export)
		return
	case "analytics":
		h.requireMethod(w, r, http.MethodGet, h.Analytics)
		return
	}

	if strings.Contains(sub, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.GetRecord(w, r, sub)
	case http.MethodPut, http.MethodPatch:
		h.UpdateRecord(w, r, sub)
	case http.MethodDelete:
		h.DeleteRecord(w, r, sub)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *RecordsHandler) requireMethod(w http.ResponseWriter, r *http.Request, method string, fn http.HandlerFunc) {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fn(w, r)
}

// ListRecords GET /api/v1/breakdown-records
func (h *RecordsHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.ctrl.Snapshot()))
}

// GetRecord GET /api/v1/breakdown-records/{id}
func (h *RecordsHandler) GetRecord(w http.ResponseWriter, r *http.Request, id string) {
	for _, rec := range h.ctrl.Records() {
		if rec.ID == id {
			writeJSON(w, http.StatusOK, Ok(rec))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, Fail("record not found"))
}

// CreateRecord POST /api/v1/breakdown-records
func (h *RecordsHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var draft domain.RecordDraft
	if err := readBodyJSON(r, maxBodyBytes, &draft); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	record, fieldErrs := draft.Resolve()
	if !fieldErrs.Empty() {
		writeJSON(w, http.StatusUnprocessableEntity, FailWith("Validation failed", fieldErrs))
		return
	}

	created, lastError := h.ctrl.AddRecord(r.Context(), record)
	h.writeMutation(w, mutationResult{Record: &created, LastError: lastError})
}

// UpdateRecord PUT|PATCH /api/v1/breakdown-records/{id}
func (h *RecordsHandler) UpdateRecord(w http.ResponseWriter, r *http.Request, id string) {
	var patch domain.RecordPatch
	if err := readBodyJSON(r, maxBodyBytes, &patch); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if patch.Empty() {
		writeJSON(w, http.StatusBadRequest, Fail("no fields to update"))
		return
	}
	if fieldErrs := patch.Validate(); !fieldErrs.Empty() {
		writeJSON(w, http.StatusUnprocessableEntity, FailWith("Validation failed", fieldErrs))
		return
	}

	updated, found, lastError := h.ctrl.UpdateRecord(r.Context(), id, patch)
	if !found {
		writeJSON(w, http.StatusNotFound, FailWith("record not found", mutationResult{LastError: lastError}))
		return
	}
	h.writeMutation(w, mutationResult{Record: &updated, LastError: lastError})
}

// DeleteRecord DELETE /api/v1/breakdown-records/{id}
func (h *RecordsHandler) DeleteRecord(w http.ResponseWriter, r *http.Request, id string) {
	deleted, lastError := h.ctrl.DeleteRecord(r.Context(), id)
	h.writeMutation(w, mutationResult{Deleted: deleted, LastError: lastError})
}

// writeMutation 写操作总是在本地生效；远端失败以 warning 返回该次操作的 lastError
func (h *RecordsHandler) writeMutation(w http.ResponseWriter, res mutationResult) {
	if res.LastError != "" {
		writeJSON(w, http.StatusOK, Warn(res.LastError, res))
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Refresh POST /api/v1/breakdown-records/refresh
func (h *RecordsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.ctrl.Refresh(r.Context())))
}

// DismissError POST /api/v1/breakdown-records/dismiss-error
func (h *RecordsHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	h.ctrl.DismissError()
	writeJSON(w, http.StatusOK, Ok(h.ctrl.Snapshot()))
}

// Analytics GET /api/v1/breakdown-records/analytics
func (h *RecordsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(report.Summarize(h.ctrl.Records())))
}

// Export GET /api/v1/breakdown-records/export?format=csv|xlsx&filename=
func (h *RecordsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	filename := sanitizeFilename(r.URL.Query().Get("filename"))

	var (
		doc *export.Document
		err error
	)
	records := h.ctrl.Records()
	switch format {
	case "csv":
		doc, err = export.BuildCSV(records, filename, h.now())
	case "xlsx":
		doc, err = export.BuildXLSX(records, filename, h.now())
	default:
		writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("unsupported export format %q", format)))
		return
	}

	if err != nil {
		metrics.ExportsTotal.WithLabelValues(format, "failure").Inc()
		if errors.Is(err, export.ErrNothingToExport) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		h.logger.Error("Failed to build export", zap.String("format", format), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("Export failed: "+err.Error()))
		return
	}

	metrics.ExportsTotal.WithLabelValues(format, "success").Inc()
	h.logger.Info("Exported records",
		zap.String("format", format),
		zap.String("filename", doc.Filename),
		zap.Int("record_count", doc.RecordCount),
	)

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	w.Header().Set("X-Export-Message", doc.Message())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

// sanitizeFilename 只保留文件名部分，去掉引号和控制字符
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
