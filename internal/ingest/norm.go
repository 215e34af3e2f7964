package ingest

import (
	"regexp"
	"strings"
	"time"
)

var isoDayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormKey 归一化列名："Patient Name" -> "patientname"
// 小写并去掉所有非 [a-z0-9] 字符，表头匹配一律用归一化后的键
func NormKey(label string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(label) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Digits 只保留数字字符
func Digits(v string) string {
	var b strings.Builder
	for _, c := range v {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// NormPhone 电话归一化：仅数字；带国家码时保留末 10 位
// 幂等：结果长度恒为 0..10
func NormPhone(v string) string {
	digits := Digits(v)
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// NormName 姓名归一化（用于 name: 合并键的模糊匹配）
func NormName(v string) string {
	return NormKey(v)
}

// dateLayouts 日期解析布局表。替代源实现里宽松的 Date() 解析：
// 规则固定、可被测试钉死，不保证覆盖任意未知格式
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2Jan2006", // MedAccess 导出格式，如 "26Nov2025"
	"2-Jan-2006",
	"Jan 2 2006",
}

// NormDate 尝试把日期字符串规范为 YYYY-MM-DD
// 已是 ISO 格式则原样保留；解析失败时返回去掉首尾空白的原值（从不丢弃）
func NormDate(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	if isoDayPattern.MatchString(s) {
		return s
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return s
}
