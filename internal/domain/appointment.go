package domain

// 预约状态（status 列）
const (
	// StatusPending 已入库、等待触发外呼
	StatusPending = "pending"
	// StatusCalling 已触发外呼 webhook
	StatusCalling = "calling"
)

// Appointment 提交到持久层的预约记录（对应 appointments 表）
// 存储层标识由持久化方分配；外呼触发以 status='pending' 为准
type Appointment struct {
	AppointmentID   string `db:"appointment_id" json:"appointment_id,omitempty"` // UUID，由存储层分配
	ClinicID        string `db:"clinic_id" json:"clinic_id,omitempty"`
	PatientName     string `db:"patient_name" json:"patient_name"`
	Phone           string `db:"phone" json:"phone"`
	DoctorName      string `db:"doctor_name" json:"doctor_name"`
	AppointmentDay  string `db:"appointment_day" json:"appointment_day"`
	AppointmentTime string `db:"appointment_time" json:"appointment_time"` // "YYYY-MM-DD HH:MM AM" 组合时间戳
	Summary         string `db:"summary" json:"summary"`
	Status          string `db:"status" json:"status"`
}
