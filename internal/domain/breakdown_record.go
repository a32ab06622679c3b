package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BreakdownRecord 设备故障记录（对应 breakdownRecords 集合中的一个文档）
type BreakdownRecord struct {
	ID          string     `json:"id"`
	Date        string     `json:"date"` // YYYY-MM-DD
	Executive   string     `json:"executive"`
	Shift       string     `json:"shift"`
	Machine     string     `json:"machine"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	DelayTime   Hours      `json:"delayTime"`
	Priority    Priority   `json:"priority"`
	SpareParts  string     `json:"spareParts,omitempty"`
	Resolution  string     `json:"resolution,omitempty"`
	Timestamp   RecordTime `json:"timestamp"`
	CreatedAt   RecordTime `json:"createdAt"`
	UpdatedAt   RecordTime `json:"updatedAt"`
}

// CreatedInstant 返回用于展示/导出的创建时间：优先 createdAt，其次 timestamp
func (r BreakdownRecord) CreatedInstant() RecordTime {
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt
	}
	return r.Timestamp
}

// Priority 维修优先级
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid 判断是否为合法优先级
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Hours 延误时长（小时）
// 前端表单提交的是字符串（如 "2.5"），存储层返回的是数字，两种都接受
type Hours float64

func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hours) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*h = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseHours(s)
		if err != nil {
			return err
		}
		*h = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid delay time: %w", err)
	}
	*h = Hours(f)
	return nil
}

// String 以最短形式输出（2.5 -> "2.5"，0 -> "0"）
func (h Hours) String() string {
	return strconv.FormatFloat(float64(h), 'f', -1, 64)
}

// ParseHours 解析字符串形式的小时数，空串视为 0
func ParseHours(s string) (Hours, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid delay time %q: %w", s, err)
	}
	return Hours(f), nil
}

// TimeKind RecordTime 的取值类型
type TimeKind int

const (
	TimeUnset TimeKind = iota
	// TimeRaw 客户端写入的日期字符串（ISO 8601 或 YYYY-MM-DD）
	TimeRaw
	// TimeStore 存储层分配的时间戳
	TimeStore
)

// RecordTime 记录中的时间字段
// 存储层时间戳和客户端原始日期串在 Record Store 边界显式区分，导出时只需调用 Resolve
type RecordTime struct {
	Kind  TimeKind
	Raw   string
	Store time.Time
}

// RawTime 构造客户端原始时间
func RawTime(s string) RecordTime {
	if s == "" {
		return RecordTime{}
	}
	return RecordTime{Kind: TimeRaw, Raw: s}
}

// StoreTime 构造存储层时间戳
func StoreTime(t time.Time) RecordTime {
	if t.IsZero() {
		return RecordTime{}
	}
	return RecordTime{Kind: TimeStore, Store: t}
}

func (t RecordTime) IsZero() bool { return t.Kind == TimeUnset }

// rawLayouts 客户端可能写入的时间格式
var rawLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Resolve 转换为 time.Time；无法解析时返回 false
func (t RecordTime) Resolve() (time.Time, bool) {
	switch t.Kind {
	case TimeStore:
		return t.Store, true
	case TimeRaw:
		s := strings.TrimSpace(t.Raw)
		for _, layout := range rawLayouts {
			if v, err := time.Parse(layout, s); err == nil {
				return v, true
			}
		}
	}
	return time.Time{}, false
}

// Before 用于按 timestamp 倒序排序；无法解析的时间排在最后
func (t RecordTime) Before(other RecordTime) bool {
	a, okA := t.Resolve()
	b, okB := other.Resolve()
	switch {
	case !okA && !okB:
		return false
	case !okA:
		return true
	case !okB:
		return false
	}
	return a.Before(b)
}

// storeTimestampJSON 存储层时间戳的 JSON 形式
type storeTimestampJSON struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

func (t RecordTime) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TimeRaw:
		return json.Marshal(t.Raw)
	case TimeStore:
		return json.Marshal(storeTimestampJSON{
			Seconds:     t.Store.Unix(),
			Nanoseconds: int64(t.Store.Nanosecond()),
		})
	default:
		return []byte("null"), nil
	}
}

func (t *RecordTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = RecordTime{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = RawTime(s)
		return nil
	}
	var ts storeTimestampJSON
	if err := json.Unmarshal(data, &ts); err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	*t = StoreTime(time.Unix(ts.Seconds, ts.Nanoseconds).UTC())
	return nil
}
