package ingest

import "clinic-intake/internal/domain"

// KeyCandidates 从记录的已填字段生成身份键，固定优先级：
// 保险号 > 电话 > 健康卡号 > 归一化姓名。多个键可指向同一条记录
func KeyCandidates(r *domain.CanonicalRecord) []string {
	var keys []string
	if r.InsuranceNumber != "" {
		keys = append(keys, "ins:"+r.InsuranceNumber)
	}
	if r.Phone != "" {
		keys = append(keys, "phone:"+r.Phone)
	}
	if r.HealthNumber != "" {
		keys = append(keys, "health:"+r.HealthNumber)
	}
	if r.PatientName != "" {
		keys = append(keys, "name:"+NormName(r.PatientName))
	}
	return keys
}

// preferredKey 去重阶段用的单一首选键：保险号 > 电话 > 姓名（第一个非空）。
// 固定优先级是已知的精度/召回取舍：同名无其他标识的两个病人会被并掉，
// 跨文件无共享键的同一病人不会被并——按源系统行为保留
func preferredKey(r *domain.CanonicalRecord) string {
	if r.InsuranceNumber != "" {
		return r.InsuranceNumber
	}
	if r.Phone != "" {
		return r.Phone
	}
	return r.PatientName
}

// keyIndex 身份键 -> 所属合并记录，多对一；会话内只增不减
type keyIndex map[string]*domain.CanonicalRecord

// lookup 按候选键顺序返回第一个命中的已有记录
func (idx keyIndex) lookup(keys []string) *domain.CanonicalRecord {
	for _, k := range keys {
		if rec, ok := idx[k]; ok {
			return rec
		}
	}
	return nil
}

// register 把记录当前全部非空身份键登记进索引
func (idx keyIndex) register(rec *domain.CanonicalRecord) {
	for _, k := range KeyCandidates(rec) {
		idx[k] = rec
	}
}
