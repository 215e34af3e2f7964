package repository

import (
	"context"
	"database/sql"
	"fmt"

	"clinic-intake/internal/domain"
)

// PostgresAppointmentsRepository 预约 Repository 实现
type PostgresAppointmentsRepository struct {
	db *sql.DB
}

// NewPostgresAppointmentsRepository 创建预约 Repository
func NewPostgresAppointmentsRepository(db *sql.DB) *PostgresAppointmentsRepository {
	return &PostgresAppointmentsRepository{db: db}
}

// 确保实现了接口
var _ AppointmentsRepository = (*PostgresAppointmentsRepository)(nil)

// InsertBatch 在一个事务里插入整批预约；任何一条失败整批回滚
func (r *PostgresAppointmentsRepository) InsertBatch(ctx context.Context, clinicID string, appts []domain.Appointment) (int, error) {
	if clinicID == "" {
		return 0, fmt.Errorf("clinic_id is required")
	}
	if len(appts) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO appointments (
			clinic_id, patient_name, phone, doctor_name,
			appointment_day, appointment_time, summary, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range appts {
		if _, err := stmt.ExecContext(ctx,
			clinicID,
			nullable(a.PatientName),
			nullable(a.Phone),
			nullable(a.DoctorName),
			nullable(a.AppointmentDay),
			nullable(a.AppointmentTime),
			nullable(a.Summary),
			a.Status,
		); err != nil {
			return 0, fmt.Errorf("failed to insert appointment for %s: %w", a.PatientName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(appts), nil
}

// ListByClinic 按创建时间倒序列出某诊所的全部预约
func (r *PostgresAppointmentsRepository) ListByClinic(ctx context.Context, clinicID string) ([]domain.Appointment, error) {
	return r.list(ctx, clinicID, "")
}

// ListPending 列出某诊所待外呼的预约
func (r *PostgresAppointmentsRepository) ListPending(ctx context.Context, clinicID string) ([]domain.Appointment, error) {
	return r.list(ctx, clinicID, domain.StatusPending)
}

func (r *PostgresAppointmentsRepository) list(ctx context.Context, clinicID, status string) ([]domain.Appointment, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinic_id is required")
	}

	query := `
		SELECT
			appointment_id::text,
			clinic_id::text,
			COALESCE(patient_name, '') as patient_name,
			COALESCE(phone, '') as phone,
			COALESCE(doctor_name, '') as doctor_name,
			COALESCE(appointment_day, '') as appointment_day,
			COALESCE(appointment_time, '') as appointment_time,
			COALESCE(summary, '') as summary,
			status
		FROM appointments
		WHERE clinic_id = $1
	`
	args := []any{clinicID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var appts []domain.Appointment
	for rows.Next() {
		var a domain.Appointment
		if err := rows.Scan(
			&a.AppointmentID,
			&a.ClinicID,
			&a.PatientName,
			&a.Phone,
			&a.DoctorName,
			&a.AppointmentDay,
			&a.AppointmentTime,
			&a.Summary,
			&a.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}
	return appts, nil
}

// UpdateStatus 更新单条预约的状态
func (r *PostgresAppointmentsRepository) UpdateStatus(ctx context.Context, appointmentID, status string) error {
	if appointmentID == "" || status == "" {
		return fmt.Errorf("appointment_id and status are required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET status = $1, updated_at = NOW() WHERE appointment_id = $2`,
		status, appointmentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("appointment %s not found", appointmentID)
	}
	return nil
}

// nullable 空串存 NULL，与源系统的插入语义一致
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
