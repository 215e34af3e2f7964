package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinic-intake/internal/domain"
	"clinic-intake/internal/ingest"
	"clinic-intake/internal/repository"
)

// fakeCallTrigger 记录每次触发；failFor 里的电话号触发失败
type fakeCallTrigger struct {
	calls   []domain.Appointment
	failFor map[string]bool
}

func (f *fakeCallTrigger) TriggerCall(_ context.Context, appt domain.Appointment) error {
	if f.failFor[appt.Phone] {
		return errors.New("webhook unreachable")
	}
	f.calls = append(f.calls, appt)
	return nil
}

func newTestService(t *testing.T) (IntakeService, *repository.MemoryAppointmentsRepository, *fakeCallTrigger) {
	t.Helper()
	repo := repository.NewMemoryAppointmentsRepository()
	calls := &fakeCallTrigger{failFor: map[string]bool{}}
	svc := NewIntakeService(repo, nil, calls, zap.NewNop())
	return svc, repo, calls
}

func uploadCSV(t *testing.T, svc IntakeService, clinicID, name, content string) *ingest.SessionState {
	t.Helper()
	state, fileErrs, err := svc.UploadFiles(context.Background(), clinicID,
		ingest.FileInput{FileName: name, Data: []byte(content)})
	require.NoError(t, err)
	require.Empty(t, fileErrs)
	return state
}

func TestUploadFilesAdvancesSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	state := uploadCSV(t, svc, "clinic-1", "a.csv",
		"Name,Phone,Reason,Date\nJohn Doe,4165551234,Checkup,2025-01-15\n")

	assert.Equal(t, 3, state.Stage)
	require.Len(t, state.MergedRecords, 1)
	assert.Equal(t, "John Doe", state.MergedRecords[0].PatientName)
}

func TestSessionsIsolatedPerClinic(t *testing.T) {
	svc, _, _ := newTestService(t)

	uploadCSV(t, svc, "clinic-1", "a.csv", "Name,Phone,Reason,Date\nJohn Doe,4165551234,Checkup,2025-01-15\n")

	state, err := svc.GetState(context.Background(), "clinic-2")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Stage)
	assert.Empty(t, state.MergedRecords)
}

func TestFixRecordThroughService(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	state := uploadCSV(t, svc, "clinic-1", "a.csv",
		"Name,Phone,Reason,Date\nJohn Doe,,Checkup,2025-01-15\n")
	require.Equal(t, 2, state.Stage)
	require.Len(t, state.Incomplete, 1)

	state, err := svc.FixRecord(ctx, "clinic-1", state.Incomplete[0].ID, map[domain.FieldName]string{
		domain.FieldPhone: "416-555-1234",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, state.Stage)

	_, err = svc.FixRecord(ctx, "clinic-1", "missing", map[domain.FieldName]string{domain.FieldPhone: "1"})
	assert.ErrorIs(t, err, ingest.ErrRecordNotFound)
}

func TestResetSessionThroughService(t *testing.T) {
	svc, _, _ := newTestService(t)

	uploadCSV(t, svc, "clinic-1", "a.csv", "Name,Phone,Reason,Date\nJohn Doe,4165551234,Checkup,2025-01-15\n")

	state, err := svc.ResetSession(context.Background(), "clinic-1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Stage)
	assert.Empty(t, state.Files)
}

func TestCommitPersistsAndResets(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	uploadCSV(t, svc, "clinic-1", "a.csv",
		"Name,Phone,Reason,Date\n"+
			"John Doe,4165551234,Checkup,2025-01-15\n"+
			"Jane Roe,4165559999,X-ray,2025-01-15\n")

	res, err := svc.Commit(ctx, "clinic-1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Saved)
	assert.Equal(t, 0, res.Skipped)

	appts, err := repo.ListByClinic(ctx, "clinic-1")
	require.NoError(t, err)
	require.Len(t, appts, 2)
	for _, a := range appts {
		assert.Equal(t, domain.StatusPending, a.Status)
	}

	// 提交成功后会话清空
	state, err := svc.GetState(ctx, "clinic-1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Stage)
}

func TestCommitPartialReportsSkipped(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	uploadCSV(t, svc, "clinic-1", "a.csv",
		"Name,Phone,Reason,Date\n"+
			"John Doe,4165551234,Checkup,2025-01-15\n"+
			"Jane Roe,4165559999,,2025-01-15\n")

	// 未确认部分提交：错误原样透传
	_, err := svc.Commit(ctx, "clinic-1", false)
	var partial *ingest.PartialCommitError
	require.ErrorAs(t, err, &partial)

	res, err := svc.Commit(ctx, "clinic-1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 1, res.Skipped)

	appts, err := repo.ListByClinic(ctx, "clinic-1")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "John Doe", appts[0].PatientName)
}

func TestTriggerPendingCalls(t *testing.T) {
	svc, repo, calls := newTestService(t)
	ctx := context.Background()

	uploadCSV(t, svc, "clinic-1", "a.csv",
		"Name,Phone,Reason,Date\n"+
			"John Doe,4165551234,Checkup,2025-01-15\n"+
			"Jane Roe,4165559999,X-ray,2025-01-15\n")
	_, err := svc.Commit(ctx, "clinic-1", false)
	require.NoError(t, err)

	res, err := svc.TriggerPendingCalls(ctx, "clinic-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Triggered)
	assert.Equal(t, 0, res.Failed)
	assert.Len(t, calls.calls, 2)

	// 触发成功的都变成 calling
	pending, err := repo.ListPending(ctx, "clinic-1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTriggerPendingCallsKeepsFailuresPending(t *testing.T) {
	svc, repo, calls := newTestService(t)
	ctx := context.Background()
	calls.failFor["4165559999"] = true

	uploadCSV(t, svc, "clinic-1", "a.csv",
		"Name,Phone,Reason,Date\n"+
			"John Doe,4165551234,Checkup,2025-01-15\n"+
			"Jane Roe,4165559999,X-ray,2025-01-15\n")
	_, err := svc.Commit(ctx, "clinic-1", false)
	require.NoError(t, err)

	res, err := svc.TriggerPendingCalls(ctx, "clinic-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Triggered)
	assert.Equal(t, 1, res.Failed)

	// 失败的保持 pending，可重试
	pending, err := repo.ListPending(ctx, "clinic-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "4165559999", pending[0].Phone)
}

func TestTriggerPendingCallsWithoutTrigger(t *testing.T) {
	repo := repository.NewMemoryAppointmentsRepository()
	svc := NewIntakeService(repo, nil, nil, zap.NewNop())

	_, err := svc.TriggerPendingCalls(context.Background(), "clinic-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestServiceRequiresClinicID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.UploadFiles(ctx, "")
	assert.Error(t, err)
	_, err = svc.GetState(ctx, "")
	assert.Error(t, err)
	_, err = svc.Commit(ctx, "", false)
	assert.Error(t, err)
	_, err = svc.TriggerPendingCalls(ctx, "")
	assert.Error(t, err)
}
