package ingest

import "clinic-intake/internal/domain"

// fieldSynonyms 各规范字段识别的列名变体，按优先级排列，第一个非空匹配生效。
// 这张表是字段映射的唯一事实来源，条目和顺序不能改（兼容既有文件格式）。
// phone 和 insurance_number 不走同义词表，由启发式规则探测（见 canonicalize.go）
var fieldSynonyms = []struct {
	Field domain.FieldName
	Keys  []string
}{
	{domain.FieldPatientName, []string{
		"patient_name",
		"patientname",
		"name",
		"fullname",
		"patient",
		"client",
	}},
	{domain.FieldHealthNumber, []string{
		"healthnumber",
		"health_number",
		"ahn",
		"uhc",
		"hin",
		"phn",
	}},
	{domain.FieldAppointmentReason, []string{
		"reason",
		"appointment_reason",
		"appointmentreason",
		"visitreason",
		"type",
		"service",
	}},
	{domain.FieldAppointmentDay, []string{
		"appointment_day",
		"appointmentdate",
		"appointment_date",
		"date",
		"day",
		"apptdate",
		"time_and_date",
	}},
	{domain.FieldAppointmentTime, []string{
		"appointment_time",
		"time",
		"appttime",
		"starttime",
		"start_time",
		"time_and_date",
	}},
	{domain.FieldDoctorName, []string{
		"doctor",
		"doctor_name",
		"providername",
		"provider",
		"physician",
	}},
}
