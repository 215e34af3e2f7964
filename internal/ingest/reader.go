package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// headerScanLimit 表头行探测范围：只在前 10 行内找
const headerScanLimit = 10

// TableReader 把单个上传文件解码为原始行序列
// CSV 第一行即表头；Excel 表头行不一定是第 0 行，需要探测
type TableReader struct {
	logger *zap.Logger
}

// NewTableReader 创建 TableReader
func NewTableReader(logger *zap.Logger) *TableReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableReader{logger: logger}
}

// Read 按扩展名分发解析，返回原始行和归一化后的表头列名
func (t *TableReader) Read(fileBytes []byte, fileName string) ([]RawRow, []string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	switch ext {
	case "csv":
		return t.readCSV(fileBytes, fileName)
	case "xlsx", "xls":
		return t.readExcel(fileBytes, fileName)
	default:
		return nil, nil, &FormatError{FileName: fileName, Reason: fmt.Sprintf("unsupported file extension %q", ext)}
	}
}

// readCSV 解析 CSV：第一行是表头，空行丢弃
func (t *TableReader) readCSV(fileBytes []byte, fileName string) ([]RawRow, []string, error) {
	r := csv.NewReader(bytes.NewReader(fileBytes))
	r.FieldsPerRecord = -1 // 允许行宽不一致
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, &FormatError{FileName: fileName, Reason: "empty file"}
	}
	if err != nil {
		return nil, nil, &FormatError{FileName: fileName, Reason: fmt.Sprintf("invalid csv: %v", err)}
	}

	var rows []RawRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &FormatError{FileName: fileName, Reason: fmt.Sprintf("invalid csv: %v", err)}
		}
		row := pairRow(header, record)
		if !row.IsBlank() {
			rows = append(rows, row)
		}
	}

	t.logger.Debug("parsed csv file",
		zap.String("file_name", fileName),
		zap.Int("rows", len(rows)),
	)
	return rows, normalizeColumns(header), nil
}

// readExcel 解析 XLSX/XLS：在前 10 行内找第一个含 >=2 个非空单元格的行作为表头，
// 其后的非空行按列序与表头配对
func (t *TableReader) readExcel(fileBytes []byte, fileName string) ([]RawRow, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, nil, &FormatError{FileName: fileName, Reason: fmt.Sprintf("failed to parse excel file: %v", err)}
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, nil, &FormatError{FileName: fileName, Reason: "excel file has no sheets"}
	}

	allRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, &FormatError{FileName: fileName, Reason: fmt.Sprintf("failed to read rows: %v", err)}
	}

	headerIdx := findHeaderRow(allRows)
	if headerIdx < 0 {
		return nil, nil, &FormatError{FileName: fileName, Reason: "no header row found"}
	}
	header := allRows[headerIdx]

	var rows []RawRow
	for _, cells := range allRows[headerIdx+1:] {
		row := pairRow(header, cells)
		if !row.IsBlank() {
			rows = append(rows, row)
		}
	}

	t.logger.Debug("parsed excel file",
		zap.String("file_name", fileName),
		zap.String("sheet", sheetName),
		zap.Int("header_row", headerIdx),
		zap.Int("rows", len(rows)),
	)
	return rows, normalizeColumns(header), nil
}

// findHeaderRow 返回前 headerScanLimit 行中第一个含 >=2 个非空单元格的行下标，找不到返回 -1
func findHeaderRow(rows [][]string) int {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		nonEmpty := 0
		for _, cell := range rows[i] {
			if strings.TrimSpace(cell) != "" {
				nonEmpty++
			}
		}
		if nonEmpty >= 2 {
			return i
		}
	}
	return -1
}

// pairRow 表头单元格与同下标的数据单元格配对；数据行短于表头时补空值
func pairRow(header, cells []string) RawRow {
	row := make(RawRow, 0, len(header))
	for i, label := range header {
		value := ""
		if i < len(cells) {
			value = cells[i]
		}
		row = append(row, RawCell{Label: label, Value: value})
	}
	return row
}

func normalizeColumns(header []string) []string {
	cols := make([]string, 0, len(header))
	for _, h := range header {
		cols = append(cols, NormKey(h))
	}
	return cols
}
