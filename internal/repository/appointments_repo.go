package repository

import (
	"context"

	"clinic-intake/internal/domain"
)

// AppointmentsRepository 预约持久化接口。
// 存储层负责分配 appointment_id；外呼触发按 status='pending' 筛选
type AppointmentsRepository interface {
	// InsertBatch 按给定顺序插入一批预约，返回插入条数
	InsertBatch(ctx context.Context, clinicID string, appts []domain.Appointment) (int, error)
	// ListByClinic 按创建时间倒序列出某诊所的全部预约
	ListByClinic(ctx context.Context, clinicID string) ([]domain.Appointment, error)
	// ListPending 列出某诊所待外呼的预约
	ListPending(ctx context.Context, clinicID string) ([]domain.Appointment, error)
	// UpdateStatus 更新单条预约的状态
	UpdateStatus(ctx context.Context, appointmentID, status string) error
}
