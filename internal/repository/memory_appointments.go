package repository

import (
	"context"
	"fmt"
	"sync"

	"clinic-intake/internal/domain"

	"github.com/google/uuid"
)

// MemoryAppointmentsRepository supports local runs when DB is disabled.
// 行为与 Postgres 实现对齐：插入顺序保留，列表按插入时间倒序
type MemoryAppointmentsRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Appointment
	order []string // 插入顺序的 appointment_id
}

func NewMemoryAppointmentsRepository() *MemoryAppointmentsRepository {
	return &MemoryAppointmentsRepository{
		byID: map[string]*domain.Appointment{},
	}
}

var _ AppointmentsRepository = (*MemoryAppointmentsRepository)(nil)

func (r *MemoryAppointmentsRepository) InsertBatch(_ context.Context, clinicID string, appts []domain.Appointment) (int, error) {
	if clinicID == "" {
		return 0, fmt.Errorf("clinic_id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range appts {
		a := a
		a.AppointmentID = uuid.NewString()
		a.ClinicID = clinicID
		r.byID[a.AppointmentID] = &a
		r.order = append(r.order, a.AppointmentID)
	}
	return len(appts), nil
}

func (r *MemoryAppointmentsRepository) ListByClinic(_ context.Context, clinicID string) ([]domain.Appointment, error) {
	return r.list(clinicID, "")
}

func (r *MemoryAppointmentsRepository) ListPending(_ context.Context, clinicID string) ([]domain.Appointment, error) {
	return r.list(clinicID, domain.StatusPending)
}

func (r *MemoryAppointmentsRepository) list(clinicID, status string) ([]domain.Appointment, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinic_id is required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Appointment
	// 倒序遍历插入顺序，模拟 ORDER BY created_at DESC
	for i := len(r.order) - 1; i >= 0; i-- {
		a := r.byID[r.order[i]]
		if a.ClinicID != clinicID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r *MemoryAppointmentsRepository) UpdateStatus(_ context.Context, appointmentID, status string) error {
	if appointmentID == "" || status == "" {
		return fmt.Errorf("appointment_id and status are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[appointmentID]
	if !ok {
		return fmt.Errorf("appointment %s not found", appointmentID)
	}
	a.Status = status
	return nil
}
