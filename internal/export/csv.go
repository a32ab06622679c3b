package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"
)

// ErrNothingToExport 记录列表为空时不生成文件
var ErrNothingToExport = errors.New("No records to export")

// Header 导出列（CSV 与 XLSX 共用，顺序固定）
var Header = []string{
	"Date",
	"Executive",
	"Shift",
	"Machine/Equipment",
	"Breakdown Category",
	"Description",
	"Delay Time (Hours)",
	"Maintenance Priority",
	"Spare Parts Used",
	"Resolution Method",
	"Created At",
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
	filenamePrefix = "breakdown-records-"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Document 生成好的导出文件
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
	RecordCount int
	Format      string
}

// Message 导出成功提示
func (d *Document) Message() string {
	return fmt.Sprintf("Successfully exported %d records to %s", d.RecordCount, strings.ToUpper(d.Format))
}

// EscapeField 含逗号、双引号或换行时加引号并把内部引号加倍
func EscapeField(field string) string {
	if strings.ContainsAny(field, ",\"\n") {
		return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	return field
}

// FormatDate 规范化为 YYYY-MM-DD；无法解析时返回空串
func FormatDate(date string) string {
	t, ok := domain.RawTime(date).Resolve()
	if !ok {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// FormatDateTime 格式化为 YYYY-MM-DD HH:MM:SS（24 小时制）；loc 为 nil 时使用 UTC
func FormatDateTime(rt domain.RecordTime, loc *time.Location) string {
	t, ok := rt.Resolve()
	if !ok {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateTimeLayout)
}

// DefaultFilename breakdown-records-YYYY-MM-DD-HH-MM-SS.<ext>（UTC）
func DefaultFilename(now time.Time, ext string) string {
	return filenamePrefix + now.UTC().Format("2006-01-02-15-04-05") + "." + ext
}

// rowValues 单条记录按 Header 顺序展开（未转义）
func rowValues(r domain.BreakdownRecord, loc *time.Location) []string {
	return []string{
		FormatDate(r.Date),
		r.Executive,
		r.Shift,
		r.Machine,
		r.Category,
		r.Description,
		r.DelayTime.String(),
		string(r.Priority),
		r.SpareParts,
		r.Resolution,
		FormatDateTime(r.CreatedInstant(), loc),
	}
}

// FormatCSV 表头加每条记录一行，行间用 \n 连接
// 空列表返回空串
func FormatCSV(records []domain.BreakdownRecord, loc *time.Location) string {
	if len(records) == 0 {
		return ""
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(Header, ","))
	for _, r := range records {
		values := rowValues(r, loc)
		for i, v := range values {
			values[i] = EscapeField(v)
		}
		lines = append(lines, strings.Join(values, ","))
	}
	return strings.Join(lines, "\n")
}

// BuildCSV 生成 CSV 导出文件；filename 为空时按 now 生成
// 时间列使用 now 所在时区
func BuildCSV(records []domain.BreakdownRecord, filename string, now time.Time) (*Document, error) {
	if len(records) == 0 {
		return nil, ErrNothingToExport
	}
	if filename == "" {
		filename = DefaultFilename(now, "csv")
	}

	return &Document{
		Filename:    filename,
		ContentType: ContentTypeCSV,
		Body:        []byte(FormatCSV(records, now.Location())),
		RecordCount: len(records),
		Format:      "csv",
	}, nil
}
