package domain

import "strings"

// FieldName 规范字段名（canonical schema 的固定字段集）
type FieldName string

const (
	FieldPatientName       FieldName = "patient_name"
	FieldPhone             FieldName = "phone"
	FieldAppointmentReason FieldName = "appointment_reason"
	FieldAppointmentDay    FieldName = "appointment_day"
	FieldAppointmentTime   FieldName = "appointment_time"
	FieldDoctorName        FieldName = "doctor_name"
	FieldHealthNumber      FieldName = "health_number"
	FieldInsuranceNumber   FieldName = "insurance_number"
)

// RequiredFields 保存前必须填写的字段（缺失时 session 停留在 stage 2）
var RequiredFields = []FieldName{
	FieldPatientName,
	FieldPhone,
	FieldAppointmentReason,
	FieldAppointmentDay,
}

// MergeableFields 合并时允许"填空"的全部值字段
// 不变量：已填写的字段永远不会被后续合并覆盖（first-writer-wins）
var MergeableFields = []FieldName{
	FieldPatientName,
	FieldPhone,
	FieldAppointmentReason,
	FieldAppointmentDay,
	FieldAppointmentTime,
	FieldDoctorName,
	FieldHealthNumber,
	FieldInsuranceNumber,
}

// CanonicalRecord 规范记录：与源文件列布局无关的固定目标结构
// ID 由 MergeEngine 在记录首次创建时分配，此后不变
type CanonicalRecord struct {
	ID                string `json:"id"`
	PatientName       string `json:"patient_name"`
	Phone             string `json:"phone"`              // 10 位数字或空
	AppointmentReason string `json:"appointment_reason"`
	AppointmentDay    string `json:"appointment_day"` // YYYY-MM-DD，无法解析时保留原值
	AppointmentTime   string `json:"appointment_time"`
	DoctorName        string `json:"doctor_name"`
	HealthNumber      string `json:"health_number"`    // 仅数字
	InsuranceNumber   string `json:"insurance_number"` // 仅数字
}

// Get 按字段名取值
func (r *CanonicalRecord) Get(f FieldName) string {
	switch f {
	case FieldPatientName:
		return r.PatientName
	case FieldPhone:
		return r.Phone
	case FieldAppointmentReason:
		return r.AppointmentReason
	case FieldAppointmentDay:
		return r.AppointmentDay
	case FieldAppointmentTime:
		return r.AppointmentTime
	case FieldDoctorName:
		return r.DoctorName
	case FieldHealthNumber:
		return r.HealthNumber
	case FieldInsuranceNumber:
		return r.InsuranceNumber
	}
	return ""
}

// Set 按字段名赋值（未知字段名忽略）
func (r *CanonicalRecord) Set(f FieldName, v string) {
	switch f {
	case FieldPatientName:
		r.PatientName = v
	case FieldPhone:
		r.Phone = v
	case FieldAppointmentReason:
		r.AppointmentReason = v
	case FieldAppointmentDay:
		r.AppointmentDay = v
	case FieldAppointmentTime:
		r.AppointmentTime = v
	case FieldDoctorName:
		r.DoctorName = v
	case FieldHealthNumber:
		r.HealthNumber = v
	case FieldInsuranceNumber:
		r.InsuranceNumber = v
	}
}

// MissingFields 返回缺失的必填字段（空或仅空白视为缺失），顺序与 RequiredFields 一致
func (r *CanonicalRecord) MissingFields() []FieldName {
	var missing []FieldName
	for _, f := range RequiredFields {
		if strings.TrimSpace(r.Get(f)) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// IsComplete 所有必填字段均已填写
func (r *CanonicalRecord) IsComplete() bool {
	return len(r.MissingFields()) == 0
}
