package recordstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ProbeResult 连通性检测结果
type ProbeResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RecordCount int    `json:"recordCount"`
	Code        string `json:"code,omitempty"`
}

// Probe 读取一次全部记录以检测 Record Store 是否可用
func Probe(ctx context.Context, s Store) ProbeResult {
	records, err := s.List(ctx)
	if err == nil {
		return ProbeResult{
			Success:     true,
			Message:     fmt.Sprintf("Record store connected successfully. Found %d records.", len(records)),
			RecordCount: len(records),
		}
	}

	message := "Record store connection failed: "
	code := CodeOf(err)
	var netErr net.Error
	switch {
	case code == CodePermissionDenied:
		message += "Permission denied. Please check the record store security rules."
	case errors.As(err, &netErr), strings.Contains(err.Error(), "network"):
		message += "Network error. Check your internet connection."
	case code == CodeUnavailable:
		message += "Record store service is unavailable."
	default:
		message += err.Error()
	}
	return ProbeResult{Success: false, Message: message, Code: code}
}
