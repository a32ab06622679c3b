package recordstore

import (
	"errors"
	"fmt"
)

// 存储层错误码（与远端文档库的错误词汇保持一致）
const (
	CodePermissionDenied = "permission-denied"
	CodeUnavailable      = "unavailable"
	CodeNotFound         = "not-found"
	CodeInvalidArgument  = "invalid-argument"
	CodeUnknown          = ""
)

var (
	// ErrStoreUnavailable 远端存储无法完成调用（网络/服务不可用/超时）
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrStoreRejected 远端存储拒绝了请求（权限/校验）
	ErrStoreRejected = errors.New("record store rejected request")
	// ErrNotFound 更新/删除的目标不存在
	ErrNotFound = errors.New("record not found")
)

// StoreError 带错误码的存储层错误
type StoreError struct {
	Op   string // list, create, update, delete
	Code string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Code == CodeUnknown {
		return fmt.Sprintf("%s %s: %v", CollectionName, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", CollectionName, e.Op, e.Code, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is 将错误码映射到哨兵错误，便于 errors.Is 判断
func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrStoreUnavailable:
		return e.Code == CodeUnavailable
	case ErrStoreRejected:
		return e.Code == CodePermissionDenied || e.Code == CodeInvalidArgument
	case ErrNotFound:
		return e.Code == CodeNotFound
	}
	return false
}

func newStoreError(op, code string, err error) *StoreError {
	return &StoreError{Op: op, Code: code, Err: err}
}

// CodeOf 提取错误码；非存储层错误返回 CodeUnknown
func CodeOf(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case errors.Is(err, ErrStoreUnavailable):
		return CodeUnavailable
	case errors.Is(err, ErrStoreRejected):
		return CodePermissionDenied
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	}
	return CodeUnknown
}
