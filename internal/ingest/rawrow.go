package ingest

import "strings"

// RawCell 原始单元格：文件中的列标签 + 单元格值
type RawCell struct {
	Label string
	Value string
}

// RawRow 原始行。保留文件中的列顺序：
// 启发式规则依赖"第一个/最后一个匹配列"的顺序语义，不能用无序 map
type RawRow []RawCell

// Lookup 按归一化键查值。同一归一化键出现多次时后者覆盖前者，
// 与源实现构建 lookup 表的行为一致
func (r RawRow) Lookup(normKey string) (string, bool) {
	found := false
	val := ""
	for _, c := range r {
		if NormKey(c.Label) == normKey {
			val = c.Value
			found = true
		}
	}
	return val, found
}

// IsBlank 整行为空（所有单元格去空白后为空）
func (r RawRow) IsBlank() bool {
	for _, c := range r {
		if strings.TrimSpace(c.Value) != "" {
			return false
		}
	}
	return true
}
