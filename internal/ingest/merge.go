package ingest

import (
	"clinic-intake/internal/domain"

	"github.com/google/uuid"
)

// MergeEngine 把多个文件的规范行折叠成去重后的记录集。
// 每次调用都对累计的全部行从头重算（不做增量修补），保证会话派生状态
// 可复现、可回退；单日门诊排程的量级下 O(n) 重算可以接受
type MergeEngine struct {
	newID func() string
}

// NewMergeEngine 创建 MergeEngine，记录 ID 用 UUID
func NewMergeEngine() *MergeEngine {
	return &MergeEngine{newID: uuid.NewString}
}

// Merge 按文件顺序、文件内按行顺序折叠。对每条输入行：
//   - 身份键无一命中索引 -> 新记录，分配 ID 并登记全部身份键
//   - 命中 -> 视为同一实体，只填充已有记录的空字段（first-writer-wins），
//     再把新出现的身份键登记进索引
//
// 最后按首选键做一遍去重，丢弃与先前记录首选键冲突的后来记录
func (m *MergeEngine) Merge(files ...[]domain.CanonicalRecord) []*domain.CanonicalRecord {
	index := keyIndex{}
	var merged []*domain.CanonicalRecord

	for _, rows := range files {
		for _, row := range rows {
			row := row // 副本，文件内的原始行保持不变
			existing := index.lookup(KeyCandidates(&row))
			if existing == nil {
				row.ID = m.newID()
				merged = append(merged, &row)
				index.register(&row)
				continue
			}
			fillBlanks(existing, &row)
			index.register(existing)
		}
	}

	return dedupe(merged)
}

// fillBlanks 把 src 的值拷入 dst 的空字段；已填字段永不覆盖
func fillBlanks(dst, src *domain.CanonicalRecord) {
	for _, f := range domain.MergeableFields {
		if dst.Get(f) == "" && src.Get(f) != "" {
			dst.Set(f, src.Get(f))
		}
	}
}

// dedupe 首选键去重。防的是这种情况：两条记录先后独立插入，
// 直到第三个文件带来新键才暴露它们是同一实体——此时按插入顺序保留先者
func dedupe(merged []*domain.CanonicalRecord) []*domain.CanonicalRecord {
	seen := make(map[string]bool, len(merged))
	unique := make([]*domain.CanonicalRecord, 0, len(merged))
	for _, rec := range merged {
		key := preferredKey(rec)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, rec)
	}
	return unique
}
