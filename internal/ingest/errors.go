package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// 会话级错误
var (
	// ErrNoFiles 尚未导入任何文件（stage 1 不允许提交）
	ErrNoFiles = errors.New("no files ingested")
	// ErrNoCompleteRecords 所有记录都缺必填字段
	ErrNoCompleteRecords = errors.New("all records are missing required fields")
	// ErrRecordNotFound FixRecord 指定的记录不存在
	ErrRecordNotFound = errors.New("record not found")
)

// FormatError 文件不可读或前 10 行内找不到表头行
// 只影响该文件，不中断同批次其他文件的导入
type FormatError struct {
	FileName string
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.FileName, e.Reason)
}

// MergeConflictError 合并集中出现多个不同的预约日期
// 在调用方拆分文件或修正日期之前，一直阻止提交
type MergeConflictError struct {
	Days []string // 去重后的日期，按首次出现顺序
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("multiple appointment dates detected: %s; upload files containing only one date",
		strings.Join(e.Days, ", "))
}

// PartialCommitError 仍有记录缺必填字段，且调用方未显式确认只保存完整记录
type PartialCommitError struct {
	Incomplete int
	Complete   int
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("%d record(s) still missing required fields; confirm partial commit to save only the %d complete record(s)",
		e.Incomplete, e.Complete)
}

// FileError 单文件导入失败（FormatError 等），批次内其他文件不受影响
type FileError struct {
	FileName string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s: %v", e.FileName, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
