package ingest

import (
	"strings"

	"clinic-intake/internal/domain"
)

// Canonicalize 把一条原始行映射为规范记录。从不失败：
// 识别不了的字段留空，由校验阶段报告缺失。
//
// 解析顺序：
//  1. 同义词表精确匹配（synonyms.go）
//  2. 启发式规则表按固定顺序补空（fallbackRules），规则只在目标字段仍为空时生效
//  3. 归一化收尾（电话/数字字段/日期，日期内嵌时间拆分）
//
// ID 不在这里分配，由 MergeEngine 在记录首次创建时分配
func Canonicalize(raw RawRow) domain.CanonicalRecord {
	rec := domain.CanonicalRecord{}

	for _, group := range fieldSynonyms {
		for _, key := range group.Keys {
			if v, ok := raw.Lookup(NormKey(key)); ok && strings.TrimSpace(v) != "" {
				rec.Set(group.Field, v)
				break
			}
		}
	}

	for _, rule := range fallbackRules {
		rule(raw, &rec)
	}

	finalizeRecord(raw, &rec)
	return rec
}

// fallbackRule 一条启发式补空规则：检查自身的前置条件，命中则写入 rec
type fallbackRule func(raw RawRow, rec *domain.CanonicalRecord)

// fallbackRules 规则顺序即求值顺序，先命中者短路后续同字段规则
var fallbackRules = []fallbackRule{
	ruleCombinedDescription,
	rulePhoneColumn,
	rulePhoneAreaSplit,
	rulePhoneFromConcern,
	rulePhoneAnyDigits,
	ruleReasonFallback,
	ruleDoctorFromProvider,
	ruleInsuranceColumn,
}

// ruleCombinedDescription 组合列（列名同时含 patient 和 description）：
// "John Doe - Chest Pain" 按第一个分隔符拆成姓名+事由；
// 无分隔符时前两个词当姓名，其余当事由；单词整个当姓名
func ruleCombinedDescription(raw RawRow, rec *domain.CanonicalRecord) {
	if rec.PatientName != "" {
		return
	}
	for _, c := range raw {
		nk := NormKey(c.Label)
		if !strings.Contains(nk, "patient") || !strings.Contains(nk, "description") {
			continue
		}
		val := strings.TrimSpace(c.Value)
		if val == "" {
			continue
		}

		for _, sep := range []string{"-", ":"} {
			if strings.Contains(val, sep) {
				parts := strings.SplitN(val, sep, 2)
				rec.PatientName = strings.TrimSpace(parts[0])
				if rec.AppointmentReason == "" {
					rec.AppointmentReason = strings.TrimSpace(parts[1])
				}
				return
			}
		}

		words := strings.Fields(val)
		if len(words) >= 2 {
			rec.PatientName = strings.Join(words[:2], " ")
			if rest := strings.Join(words[2:], " "); rest != "" && rec.AppointmentReason == "" {
				rec.AppointmentReason = rest
			}
		} else {
			rec.PatientName = val
		}
		return
	}
}

// phoneColumnHints 电话列名特征；"phonenumber" 已被 "phone" 覆盖，保留只为与映射表对齐
var phoneColumnHints = []string{"phone", "phonenumber", "cell", "mobile", "contact"}

// rulePhoneColumn 电话探测：扫描所有列，取最后一个列名含电话特征的列
func rulePhoneColumn(raw RawRow, rec *domain.CanonicalRecord) {
	if rec.Phone != "" {
		return
	}
	detected := ""
	for _, c := range raw {
		nk := NormKey(c.Label)
		for _, hint := range phoneColumnHints {
			if strings.Contains(nk, hint) {
				detected = c.Value
				break
			}
		}
	}
	rec.Phone = NormPhone(detected)
}

// phoneIncomplete 电话仍不完整（空或不足 10 位），允许后续补救规则继续尝试
func phoneIncomplete(rec *domain.CanonicalRecord) bool {
	return len(NormPhone(rec.Phone)) < 10
}

// rulePhoneAreaSplit 区号与号码分列的格式（MedAccess 导出常见）：
// 两列数字拼接后 >=10 位才采纳，保留末 10 位
func rulePhoneAreaSplit(raw RawRow, rec *domain.CanonicalRecord) {
	if !phoneIncomplete(rec) {
		return
	}
	var area, num string
	for _, c := range raw {
		nk := NormKey(c.Label)
		if nk == "areacode" || strings.Contains(nk, "areacode") || nk == "area" {
			area = Digits(c.Value)
			break
		}
	}
	for _, c := range raw {
		nk := NormKey(c.Label)
		if strings.Contains(nk, "phone") || nk == "phonenumber" || nk == "number" {
			num = Digits(c.Value)
			break
		}
	}
	if combined := area + num; len(combined) >= 10 {
		rec.Phone = combined[len(combined)-10:]
	}
}

// rulePhoneFromConcern 从 concern 列的自由文本里提取电话号码
func rulePhoneFromConcern(raw RawRow, rec *domain.CanonicalRecord) {
	if !phoneIncomplete(rec) {
		return
	}
	if v, ok := raw.Lookup("concern"); ok {
		if digits := Digits(v); len(digits) >= 10 {
			rec.Phone = digits[len(digits)-10:]
		}
	}
}

// rulePhoneAnyDigits 最后手段：按列序找第一个数字内容 >=10 位的列
func rulePhoneAnyDigits(raw RawRow, rec *domain.CanonicalRecord) {
	if !phoneIncomplete(rec) {
		return
	}
	for _, c := range raw {
		if digits := Digits(c.Value); len(digits) >= 10 {
			rec.Phone = digits[len(digits)-10:]
			return
		}
	}
}

// ruleReasonFallback 事由兜底：先 concern 列，再 type 列
func ruleReasonFallback(raw RawRow, rec *domain.CanonicalRecord) {
	if rec.AppointmentReason != "" {
		return
	}
	if v, ok := raw.Lookup("concern"); ok && strings.TrimSpace(v) != "" {
		rec.AppointmentReason = strings.TrimSpace(v)
		return
	}
	if v, ok := raw.Lookup("type"); ok && strings.TrimSpace(v) != "" {
		rec.AppointmentReason = strings.TrimSpace(v)
	}
}

// ruleDoctorFromProvider 医生兜底：provider 列
func ruleDoctorFromProvider(raw RawRow, rec *domain.CanonicalRecord) {
	if rec.DoctorName != "" {
		return
	}
	if v, ok := raw.Lookup("provider"); ok && strings.TrimSpace(v) != "" {
		rec.DoctorName = strings.TrimSpace(v)
	}
}

// ruleInsuranceColumn 保险号/主标识兜底：第一个命中特征的列，仅保留数字
// 常见列名：Ins #、Primary ID、Health Number、HIN、*Id
func ruleInsuranceColumn(raw RawRow, rec *domain.CanonicalRecord) {
	if rec.InsuranceNumber != "" {
		return
	}
	for _, c := range raw {
		nk := NormKey(c.Label)
		if nk == "ins" ||
			strings.Contains(nk, "insurance") ||
			strings.Contains(nk, "primaryid") ||
			strings.Contains(nk, "healthnumber") ||
			nk == "hin" ||
			strings.HasSuffix(nk, "id") {
			rec.InsuranceNumber = Digits(c.Value)
			return
		}
	}
}

// finalizeRecord 归一化收尾：去空白、电话/数字字段规范化、日期规范化。
// appointment_day 带内嵌空格（日期+时间合并列）时拆分：左半重新归一化为日期，
// 右半在 appointment_time 仍为空时充当时间
func finalizeRecord(_ RawRow, rec *domain.CanonicalRecord) {
	rec.PatientName = strings.TrimSpace(rec.PatientName)
	rec.Phone = NormPhone(rec.Phone)
	rec.HealthNumber = Digits(rec.HealthNumber)
	rec.InsuranceNumber = Digits(rec.InsuranceNumber)
	rec.AppointmentReason = strings.TrimSpace(rec.AppointmentReason)
	rec.AppointmentDay = NormDate(rec.AppointmentDay)
	rec.AppointmentTime = strings.TrimSpace(rec.AppointmentTime)
	rec.DoctorName = strings.TrimSpace(rec.DoctorName)

	if i := strings.Index(rec.AppointmentDay, " "); i >= 0 {
		day := rec.AppointmentDay[:i]
		rest := strings.TrimSpace(rec.AppointmentDay[i+1:])
		rec.AppointmentDay = NormDate(day)
		if rest != "" && rec.AppointmentTime == "" {
			rec.AppointmentTime = rest
		}
	}
}
