package ingest

import (
	"testing"

	"clinic-intake/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestValidateCompleteAndIncomplete(t *testing.T) {
	records := []*domain.CanonicalRecord{
		{ID: "a", PatientName: "John Doe", Phone: "4165551234", AppointmentReason: "Checkup", AppointmentDay: "2025-01-15"},
		{ID: "b", PatientName: "Jane Roe", AppointmentDay: "2025-01-15"},
		{ID: "c", PatientName: "   ", Phone: "4165550000", AppointmentReason: "X-ray", AppointmentDay: "2025-01-15"},
	}

	res := Validate(records, domain.RequiredFields)
	require.Len(t, res.Complete, 1)
	require.Equal(t, "a", res.Complete[0].ID)

	require.Len(t, res.Incomplete, 2)
	require.Equal(t, []domain.FieldName{domain.FieldPhone, domain.FieldAppointmentReason}, res.Incomplete[0].Missing)
	// 仅空白等同缺失
	require.Equal(t, []domain.FieldName{domain.FieldPatientName}, res.Incomplete[1].Missing)

	// 并集顺序与必填字段顺序一致
	require.Equal(t,
		[]domain.FieldName{domain.FieldPatientName, domain.FieldPhone, domain.FieldAppointmentReason},
		res.MissingFieldUnion,
	)
	require.Nil(t, res.Conflict)
}

func TestValidateDateConflict(t *testing.T) {
	records := []*domain.CanonicalRecord{
		{PatientName: "John Doe", Phone: "4165551234", AppointmentReason: "Checkup", AppointmentDay: "2025-01-15"},
		{PatientName: "Jane Roe", Phone: "4165559999", AppointmentReason: "X-ray", AppointmentDay: "2025-01-16"},
	}

	res := Validate(records, domain.RequiredFields)
	require.NotNil(t, res.Conflict)
	// 报出全部日期，按首次出现顺序
	require.Equal(t, []string{"2025-01-15", "2025-01-16"}, res.Conflict.Days)
	require.Contains(t, res.Conflict.Error(), "2025-01-15")
	require.Contains(t, res.Conflict.Error(), "2025-01-16")
}

func TestValidateEmptyDaysNoConflict(t *testing.T) {
	// 空日期不参与冲突判定
	records := []*domain.CanonicalRecord{
		{PatientName: "John Doe", AppointmentDay: "2025-01-15"},
		{PatientName: "Jane Roe"},
	}
	res := Validate(records, domain.RequiredFields)
	require.Nil(t, res.Conflict)
}

func TestValidateNoRecords(t *testing.T) {
	res := Validate(nil, domain.RequiredFields)
	require.Empty(t, res.Complete)
	require.Empty(t, res.Incomplete)
	require.Empty(t, res.MissingFieldUnion)
	require.Nil(t, res.Conflict)
}
