package datasync

import (
	"context"
	"errors"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/recordstore"
)

// ErrLoadTimeout 初次加载超过 LoadTimeout 仍未返回
var ErrLoadTimeout = errors.New("record store connection timeout")

// FailureCause 加载失败原因（决定展示给用户的提示）
type FailureCause string

const (
	CauseTimeout     FailureCause = "timeout"
	CausePermission  FailureCause = "permission-denied"
	CauseUnavailable FailureCause = "unavailable"
	CauseUnknown     FailureCause = "unknown"
)

// Classify 根据错误判断失败原因
func Classify(err error) FailureCause {
	switch {
	case errors.Is(err, ErrLoadTimeout), errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	}
	switch recordstore.CodeOf(err) {
	case recordstore.CodePermissionDenied:
		return CausePermission
	case recordstore.CodeUnavailable:
		return CauseUnavailable
	}
	return CauseUnknown
}

const loadErrorPrefix = "Failed to connect to the record store. "

// LoadErrorMessage 加载失败时的横幅提示
func LoadErrorMessage(cause FailureCause) string {
	switch cause {
	case CauseTimeout:
		return loadErrorPrefix + "Please check the record store configuration."
	case CausePermission:
		return loadErrorPrefix + "Please check the record store security rules."
	case CauseUnavailable:
		return loadErrorPrefix + "The record store service is temporarily unavailable."
	default:
		return loadErrorPrefix + "Please check your internet connection and record store setup."
	}
}

// 写操作失败提示（写操作仍在本地生效）
const (
	MsgAddFailed    = "Failed to save record. Please check your internet connection."
	MsgUpdateFailed = "Failed to update record. Please check your internet connection."
	MsgDeleteFailed = "Failed to delete record. Please check your internet connection."
)
