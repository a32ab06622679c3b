package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Breakdown Records"

var columnWidths = []float64{
	12, // Date
	15, // Executive
	20, // Shift
	22, // Machine/Equipment
	20, // Breakdown Category
	40, // Description
	12, // Delay Time (Hours)
	12, // Maintenance Priority
	25, // Spare Parts Used
	30, // Resolution Method
	20, // Created At
}

// delayColumn Delay Time 列以数字写入
const delayColumn = 7

// BuildXLSX 生成 Excel 导出文件（与 CSV 相同的列）
func BuildXLSX(records []domain.BreakdownRecord, filename string, now time.Time) (*Document, error) {
	if len(records) == 0 {
		return nil, ErrNothingToExport
	}
	if filename == "" {
		filename = DefaultFilename(now, "xlsx")
	}

	body, err := generateRecordsExcel(records, now.Location())
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    filename,
		ContentType: ContentTypeXLSX,
		Body:        body,
		RecordCount: len(records),
		Format:      "xlsx",
	}, nil
}

func generateRecordsExcel(records []domain.BreakdownRecord, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能 Close

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range Header {
		if err := setCellValue(f, col+1, 1, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell: %w", err)
		}
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, r := range records {
		row := rowIdx + 2 // 第 1 行是表头
		for colIdx, v := range rowValues(r, loc) {
			var value any = v
			if colIdx+1 == delayColumn {
				value = float64(r.DelayTime)
			}
			if v == "" {
				continue
			}
			if err := setCellValue(f, colIdx+1, row, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheetName, cell, value)
}
