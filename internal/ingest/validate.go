package ingest

import (
	"strings"

	"clinic-intake/internal/domain"
)

// IncompleteRecord 缺必填字段的记录及其缺失清单（供界面修补用）
type IncompleteRecord struct {
	Record  *domain.CanonicalRecord
	Missing []domain.FieldName
}

// ValidationResult 一次校验的完整结论
type ValidationResult struct {
	Complete   []*domain.CanonicalRecord
	Incomplete []IncompleteRecord
	// MissingFieldUnion 全部记录缺失字段的并集，顺序与 required 一致
	MissingFieldUnion []domain.FieldName
	// Conflict 合并集中出现多个预约日期时非空；无论记录是否完整都阻止 stage 3
	Conflict *MergeConflictError
}

// Validate 对合并后的记录集做完整性分类和单日一致性检查。
// 纯函数，不修改输入
func Validate(records []*domain.CanonicalRecord, required []domain.FieldName) ValidationResult {
	var res ValidationResult

	missingSet := make(map[domain.FieldName]bool)
	for _, rec := range records {
		var missing []domain.FieldName
		for _, f := range required {
			if strings.TrimSpace(rec.Get(f)) == "" {
				missing = append(missing, f)
				missingSet[f] = true
			}
		}
		if len(missing) == 0 {
			res.Complete = append(res.Complete, rec)
		} else {
			res.Incomplete = append(res.Incomplete, IncompleteRecord{Record: rec, Missing: missing})
		}
	}
	for _, f := range required {
		if missingSet[f] {
			res.MissingFieldUnion = append(res.MissingFieldUnion, f)
		}
	}

	// 单批次只允许一个预约日期；出现多个时报全部日期，绝不悄悄挑一个
	seenDays := make(map[string]bool)
	var days []string
	for _, rec := range records {
		day := rec.AppointmentDay
		if day == "" || seenDays[day] {
			continue
		}
		seenDays[day] = true
		days = append(days, day)
	}
	if len(days) > 1 {
		res.Conflict = &MergeConflictError{Days: days}
	}

	return res
}
