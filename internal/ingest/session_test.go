package ingest

import (
	"testing"

	"clinic-intake/internal/domain"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSession() *Session {
	return NewSession(zap.NewNop())
}

func csvFile(name, content string) FileInput {
	return FileInput{FileName: name, Data: []byte(content)}
}

func TestSessionStartsAtStageOne(t *testing.T) {
	s := newTestSession()
	require.Equal(t, StageAwaitingFirstFile, s.Stage())
	// 空会话的缺失并集 = 全部必填字段
	require.Equal(t, domain.RequiredFields, s.MissingFieldUnion())
}

func TestSessionTwoFileMergeScenario(t *testing.T) {
	s := newTestSession()

	errs := s.AddFiles(csvFile("fileA.csv", "Name,Phone,Date\nJohn Doe,4165551234,2025-01-15\n"))
	require.Empty(t, errs)
	// 第一个文件缺事由：需要更多文件
	require.Equal(t, StageAwaitingMoreFields, s.Stage())
	require.Contains(t, s.MissingFieldUnion(), domain.FieldAppointmentReason)

	errs = s.AddFiles(csvFile("fileB.csv", "patient,reason\nJohn Doe,Checkup\n"))
	require.Empty(t, errs)

	require.Equal(t, StageReadyToCommit, s.Stage())
	merged := s.MergedRecords()
	require.Len(t, merged, 1)
	rec := merged[0]
	require.NotEmpty(t, rec.ID)
	require.Equal(t, "John Doe", rec.PatientName)
	require.Equal(t, "4165551234", rec.Phone)
	require.Equal(t, "Checkup", rec.AppointmentReason)
	require.Equal(t, "2025-01-15", rec.AppointmentDay)
	require.Empty(t, s.MissingFieldUnion())
}

func TestSessionPerFileErrorIsolation(t *testing.T) {
	s := newTestSession()

	errs := s.AddFiles(
		csvFile("bad.txt", "whatever"),
		csvFile("good.csv", "Name,Phone,Reason,Date\nJohn Doe,4165551234,Checkup,2025-01-15\n"),
	)
	// 坏文件单独报错，好文件照常并入
	require.Len(t, errs, 1)
	require.Equal(t, "bad.txt", errs[0].FileName)
	var fe *FormatError
	require.ErrorAs(t, errs[0].Err, &fe)

	require.Len(t, s.Files(), 1)
	require.Equal(t, StageReadyToCommit, s.Stage())
}

func TestSessionDateConflictBlocksCommit(t *testing.T) {
	s := newTestSession()

	errs := s.AddFiles(csvFile("mixed.csv",
		"Name,Phone,Reason,Date\n"+
			"John Doe,4165551234,Checkup,2025-01-15\n"+
			"Jane Roe,4165559999,X-ray,2025-01-16\n"))
	require.Empty(t, errs)

	// 记录本身都完整，但日期冲突压住 stage 3
	require.Equal(t, StageAwaitingMoreFields, s.Stage())
	var conflict *MergeConflictError
	require.ErrorAs(t, s.MergeError(), &conflict)
	require.Equal(t, []string{"2025-01-15", "2025-01-16"}, conflict.Days)

	_, err := s.Commit(true)
	require.ErrorAs(t, err, &conflict)
}

func TestSessionFixRecordAdvancesStage(t *testing.T) {
	s := newTestSession()

	errs := s.AddFiles(csvFile("a.csv", "Name,Phone,Reason,Date\nJohn Doe,,Checkup,2025-01-15\n"))
	require.Empty(t, errs)
	require.Equal(t, StageAwaitingMoreFields, s.Stage())
	require.Equal(t, []domain.FieldName{domain.FieldPhone}, s.MissingFieldUnion())

	inc := s.Incomplete()
	require.Len(t, inc, 1)
	id := inc[0].Record.ID

	err := s.FixRecord(id, map[domain.FieldName]string{
		domain.FieldPhone: "(416) 555-1234",
	})
	require.NoError(t, err)

	require.Equal(t, StageReadyToCommit, s.Stage())
	require.Empty(t, s.MissingFieldUnion())
	// 修补值走同样的归一化
	require.Equal(t, "4165551234", s.MergedRecords()[0].Phone)
	// ID 不因修补/重算校验而改变
	require.Equal(t, id, s.MergedRecords()[0].ID)
}

func TestSessionFixRecordUnknownID(t *testing.T) {
	s := newTestSession()
	s.AddFiles(csvFile("a.csv", "Name,Phone,Reason,Date\nJohn Doe,,Checkup,2025-01-15\n"))
	err := s.FixRecord("nope", map[domain.FieldName]string{domain.FieldPhone: "4165551234"})
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSessionReset(t *testing.T) {
	s := newTestSession()
	s.AddFiles(csvFile("a.csv", "Name,Phone,Reason,Date\nJohn Doe,4165551234,Checkup,2025-01-15\n"))
	require.Equal(t, StageReadyToCommit, s.Stage())

	s.Reset()
	require.Equal(t, StageAwaitingFirstFile, s.Stage())
	require.Empty(t, s.Files())
	require.Empty(t, s.MergedRecords())
}

func TestSessionCommitRequiresFiles(t *testing.T) {
	s := newTestSession()
	_, err := s.Commit(false)
	require.ErrorIs(t, err, ErrNoFiles)
}

func TestSessionCommitBuildsAppointments(t *testing.T) {
	s := newTestSession()
	s.AddFiles(csvFile("a.csv",
		"Name,Phone,Reason,Date,Time\n"+
			"John Doe,4165551234,Checkup,2025-01-15,V04:45 PM\n"+
			"Jane Roe,4165559999,X-ray,2025-01-15,\n"))
	require.Equal(t, StageReadyToCommit, s.Stage())

	appts, err := s.Commit(false)
	require.NoError(t, err)
	require.Len(t, appts, 2)

	// 时间串前导杂质被剔除
	require.Equal(t, "2025-01-15 04:45 PM", appts[0].AppointmentTime)
	// 缺时间时默认 09:00 AM
	require.Equal(t, "2025-01-15 09:00 AM", appts[1].AppointmentTime)

	for _, a := range appts {
		require.Equal(t, domain.StatusPending, a.Status)
		require.Equal(t, "2025-01-15", a.AppointmentDay)
	}
	require.Equal(t, "Checkup", appts[0].Summary)

	// Commit 不动会话状态，由调用方决定何时 Reset
	require.Equal(t, StageReadyToCommit, s.Stage())
	require.Len(t, s.Files(), 1)
}

func TestSessionPartialCommitNeedsConfirmation(t *testing.T) {
	s := newTestSession()
	s.AddFiles(csvFile("a.csv",
		"Name,Phone,Reason,Date\n"+
			"John Doe,4165551234,Checkup,2025-01-15\n"+
			"Jane Roe,4165559999,,2025-01-15\n"))
	require.Equal(t, StageAwaitingMoreFields, s.Stage())

	// 未确认：拒绝部分提交
	_, err := s.Commit(false)
	var partial *PartialCommitError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, 1, partial.Incomplete)
	require.Equal(t, 1, partial.Complete)

	// 显式确认：只保存完整记录
	appts, err := s.Commit(true)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	require.Equal(t, "John Doe", appts[0].PatientName)
}

func TestSessionCommitAllIncomplete(t *testing.T) {
	s := newTestSession()
	s.AddFiles(csvFile("a.csv", "Name,Phone\nJohn Doe,\n"))
	_, err := s.Commit(true)
	require.ErrorIs(t, err, ErrNoCompleteRecords)
}

func TestSessionSnapshot(t *testing.T) {
	s := newTestSession()
	s.AddFiles(csvFile("a.csv",
		"Name,Phone,Reason,Date\n"+
			"John Doe,4165551234,Checkup,2025-01-15\n"+
			"Jane Roe,,X-ray,2025-01-15\n"))

	state := s.Snapshot()
	require.Equal(t, 2, state.Stage)
	require.Equal(t, "awaiting_more_fields", state.StageName)
	require.Equal(t, []FileSummary{{FileName: "a.csv", RowCount: 2}}, state.Files)
	require.Len(t, state.MergedRecords, 2)
	require.Equal(t, []domain.FieldName{domain.FieldPhone}, state.MissingFields)
	require.Empty(t, state.MergeError)
	require.Len(t, state.Incomplete, 1)
	require.Equal(t, []domain.FieldName{domain.FieldPhone}, state.Incomplete[0].Missing)
}
