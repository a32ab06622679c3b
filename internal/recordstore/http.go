package recordstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HTTPStore 远端文档库 REST API 客户端
// 路由：
//   - GET    /collections/{collection}/documents?orderBy=timestamp&direction=desc
//   - POST   /collections/{collection}/documents
//   - PATCH  /collections/{collection}/documents/{id}
//   - DELETE /collections/{collection}/documents/{id}
type HTTPStore struct {
	httpClient *resty.Client
	collection string
	logger     *zap.Logger
}

// documentList 列表响应
type documentList struct {
	Documents []domain.BreakdownRecord `json:"documents"`
}

// apiError 远端错误响应：{"error":{"code":"permission-denied","message":"..."}}
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewHTTPStore 创建 REST Record Store 客户端（不重试）
func NewHTTPStore(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPStore {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}

	return &HTTPStore{
		httpClient: client,
		collection: CollectionName,
		logger:     logger,
	}
}

var _ Store = (*HTTPStore)(nil)

// WithCollection 使用其他集合名（空串保持默认）
func (s *HTTPStore) WithCollection(name string) *HTTPStore {
	if name != "" {
		s.collection = name
	}
	return s
}

func (s *HTTPStore) request(ctx context.Context) *resty.Request {
	return s.httpClient.R().
		SetContext(ctx).
		SetPathParam("collection", s.collection).
		SetError(&apiError{})
}

// List 获取全部文档（服务端按 timestamp 倒序）
func (s *HTTPStore) List(ctx context.Context) ([]domain.BreakdownRecord, error) {
	var out documentList
	resp, err := s.request(ctx).
		SetQueryParams(map[string]string{"orderBy": "timestamp", "direction": "desc"}).
		SetResult(&out).
		Get("/collections/{collection}/documents")
	if err := s.check("list", resp, err); err != nil {
		return nil, err
	}

	records := out.Documents
	if records == nil {
		records = []domain.BreakdownRecord{}
	}
	// 服务端已排序，这里再做一次稳定排序以保证契约
	sortNewestFirst(records)
	return records, nil
}

// Create 创建文档，返回服务端分配的 id 和 timestamp
func (s *HTTPStore) Create(ctx context.Context, record domain.BreakdownRecord) (domain.BreakdownRecord, error) {
	record.ID = ""
	var created domain.BreakdownRecord
	resp, err := s.request(ctx).
		SetBody(record).
		SetResult(&created).
		Post("/collections/{collection}/documents")
	if err := s.check("create", resp, err); err != nil {
		return domain.BreakdownRecord{}, err
	}
	if created.ID == "" {
		return domain.BreakdownRecord{}, newStoreError("create", CodeUnknown, errors.New("response has no document id"))
	}

	// 服务端只回传部分字段时，以提交内容补齐
	if created.Timestamp.IsZero() {
		created.Timestamp = domain.StoreTime(time.Now().UTC())
	}
	merged := record
	merged.ID = created.ID
	merged.Timestamp = created.Timestamp
	if !created.CreatedAt.IsZero() {
		merged.CreatedAt = created.CreatedAt
	}
	return merged, nil
}

// Update 字段级合并
func (s *HTTPStore) Update(ctx context.Context, id string, patch domain.RecordPatch) error {
	resp, err := s.request(ctx).
		SetPathParam("id", id).
		SetBody(patch).
		Patch("/collections/{collection}/documents/{id}")
	return s.check("update", resp, err)
}

// Delete 删除文档
func (s *HTTPStore) Delete(ctx context.Context, id string) error {
	resp, err := s.request(ctx).
		SetPathParam("id", id).
		Delete("/collections/{collection}/documents/{id}")
	return s.check("delete", resp, err)
}

// check 将传输错误/HTTP 状态映射为存储层错误码
func (s *HTTPStore) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		s.logger.Warn("Record store request failed",
			zap.String("op", op),
			zap.Error(err),
		)
		return newStoreError(op, CodeUnavailable, err)
	}
	if !resp.IsError() {
		return nil
	}

	status := resp.StatusCode()
	msg := http.StatusText(status)
	code := statusCode(status)
	if e, ok := resp.Error().(*apiError); ok && e != nil {
		if e.Error.Message != "" {
			msg = e.Error.Message
		}
		if e.Error.Code != "" {
			code = e.Error.Code
		}
	}

	s.logger.Warn("Record store returned error",
		zap.String("op", op),
		zap.Int("status_code", status),
		zap.String("code", code),
		zap.String("message", msg),
	)
	return newStoreError(op, code, fmt.Errorf("status %d: %s", status, msg))
}

func statusCode(status int) string {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return CodePermissionDenied
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusTooManyRequests, status >= 500:
		return CodeUnavailable
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity, status == http.StatusConflict:
		return CodeInvalidArgument
	}
	return CodeUnknown
}
