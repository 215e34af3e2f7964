package domain

// UploadedFile 单个已导入文件的解析结果，保留用于审计和列表展示
type UploadedFile struct {
	FileName string `json:"file_name"`
	// Rows 该文件的规范化行（尚未合并，不携带 ID）
	Rows []CanonicalRecord `json:"rows"`
	// ColumnsPresent 归一化后的表头列名（诊断用，不参与匹配）
	ColumnsPresent []string `json:"columns_present"`
}
