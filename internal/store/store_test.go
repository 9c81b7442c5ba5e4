package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard/internal/attendance"
	"dashboard/internal/calendar"
	"dashboard/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "dashboard.db"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(calendar.FixedClock(time.Date(2025, time.April, 16, 12, 0, 0, 0, time.UTC))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(t *testing.T, s string) calendar.Date {
	t.Helper()
	d, err := calendar.ParseDate(s)
	require.NoError(t, err)
	return d
}

func sampleStudent() *model.Student {
	return &model.Student{
		Name:         "Ana Souza",
		Registration: "2025-001",
		School:       "EE Central",
		Class:        "9A",
		TeachingDays: []calendar.Weekday{calendar.Monday, calendar.Wednesday, calendar.Friday},
	}
}

func TestCreateAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	st := sampleStudent()

	require.NoError(t, s.Create(ctx, st))
	assert.NotEmpty(t, st.ID)

	got, err := s.FindByRegistration(ctx, " 2025-001 ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, "Ana Souza", got.Name)
	assert.Equal(t, st.TeachingDays, got.TeachingDays)
	assert.Empty(t, got.Attendance)
	assert.Nil(t, got.Grade)

	byID, err := s.FindByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Registration, byID.Registration)
}

func TestFindMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.FindByRegistration(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateDuplicateRegistration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sampleStudent()))

	err := s.Create(ctx, sampleStudent())
	assert.ErrorIs(t, err, ErrDuplicateRegistration)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSavePersistsThreeStateLedgerAndGrade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	st := sampleStudent()
	require.NoError(t, s.Create(ctx, st))

	grade := 7.5
	st.Grade = &grade
	st.Attendance = attendance.Ledger{
		day(t, "2025-04-07"): attendance.Present,
		day(t, "2025-04-09"): attendance.Absent,
	}
	require.NoError(t, s.Save(ctx, st))

	var raw string
	require.NoError(t, s.db.QueryRow(`SELECT attendance FROM students WHERE id = ?`, st.ID).Scan(&raw))
	assert.JSONEq(t, `[{"date":"2025-04-07","type":"presenca"},{"date":"2025-04-09","type":"falta"}]`, raw)

	got, err := s.FindByRegistration(ctx, st.Registration)
	require.NoError(t, err)
	assert.True(t, st.Attendance.Equal(got.Attendance))
	require.NotNil(t, got.Grade)
	assert.Equal(t, 7.5, *got.Grade)
}

func TestSaveUnknownStudent(t *testing.T) {
	s := newTestStore(t)
	st := sampleStudent()
	st.ID = "missing"

	assert.ErrorIs(t, s.Save(context.Background(), st), ErrNotFound)
}

func TestReadLegacyAndMalformedColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	st := sampleStudent()
	require.NoError(t, s.Create(ctx, st))

	_, err := s.db.Exec(`UPDATE students SET attendance = ? WHERE id = ?`, `["2025-04-07","2025-04-09T00:00:00.000Z"]`, st.ID)
	require.NoError(t, err)
	got, err := s.FindByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.Ledger{
		day(t, "2025-04-07"): attendance.Present,
		day(t, "2025-04-09"): attendance.Present,
	}, got.Attendance)

	_, err = s.db.Exec(`UPDATE students SET attendance = ?, teaching_days = ? WHERE id = ?`, `{not json`, `"mon"`, st.ID)
	require.NoError(t, err)
	got, err = s.FindByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Attendance)
	assert.Empty(t, got.TeachingDays)
}

func TestDecodeAttendanceVariants(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		kind    columnKind
		want    attendance.Ledger
		skipped int
	}{
		{name: "empty", raw: ``, kind: kindEmpty, want: attendance.Ledger{}},
		{name: "null", raw: `null`, kind: kindEmpty, want: attendance.Ledger{}},
		{
			name: "legacy dates",
			raw:  `["2025-04-07"]`,
			kind: kindDates,
			want: attendance.Ledger{day(t, "2025-04-07"): attendance.Present},
		},
		{
			name: "typed records",
			raw:  `[{"date":"2025-04-07","type":"presenca"},{"date":"2025-04-09","type":"falta"},{"date":"2025-04-11","type":"atraso"}]`,
			kind: kindRecords,
			want: attendance.Ledger{
				day(t, "2025-04-07"): attendance.Present,
				day(t, "2025-04-09"): attendance.Absent,
			},
			skipped: 1,
		},
		{
			name:    "mixed keeps typed record",
			raw:     `["2025-04-07", {"date":"2025-04-07","type":"falta"}, 3, "garbage"]`,
			kind:    kindMixed,
			want:    attendance.Ledger{day(t, "2025-04-07"): attendance.Absent},
			skipped: 2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			col, err := decodeAttendance([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.kind, col.Kind)
			l, skipped := col.Ledger()
			assert.Equal(t, tc.want, l)
			assert.Equal(t, tc.skipped, skipped)
		})
	}

	_, err := decodeAttendance([]byte(`85`))
	assert.Error(t, err)
}

func TestNormalizeTeachingDays(t *testing.T) {
	assert.Equal(t,
		[]calendar.Weekday{calendar.Monday, calendar.Wednesday, calendar.Friday},
		NormalizeTeachingDays([]int{5, 3, 0, 1, 3, 7, 6}))
}

const legacyDump = `{
	"alunosDashboard": "[{\"id\":\"1712000000000\",\"name\":\"Ana Souza\",\"registration\":\"2025-001\",\"school\":\"EE Central\",\"class\":\"9A\",\"teachingDays\":[1,3,5],\"attendance\":[\"2025-04-07\",\"2025-04-09\"]},{\"name\":\"\",\"registration\":\"x\"}]",
	"students": [
		{"id":"a","name":"Ana Souza","registration":"2025-001","class":"9A","attendance":85,"grade":8},
		{"id":"b","name":"Bruno Lima","registration":"2025-002","class":"8B","attendance":70,"grade":4.5}
	],
	"theme": "dark"
}`

func TestMigrateLegacy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dump, err := ParseLegacyDump(strings.NewReader(legacyDump))
	require.NoError(t, err)

	rep, err := s.MigrateLegacy(ctx, dump, false)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Imported)
	assert.Equal(t, 1, rep.Merged)
	assert.Equal(t, 1, rep.Invalid)
	assert.Equal(t, []string{LegacyKeyDashboard, LegacyKeyStudents}, rep.Keys)

	ana, err := s.FindByRegistration(ctx, "2025-001")
	require.NoError(t, err)
	require.NotNil(t, ana)
	assert.Equal(t, []calendar.Weekday{calendar.Monday, calendar.Wednesday, calendar.Friday}, ana.TeachingDays)
	assert.Equal(t, attendance.Present, ana.Attendance.Status(day(t, "2025-04-09")))
	require.NotNil(t, ana.Grade)
	assert.Equal(t, 8.0, *ana.Grade)

	bruno, err := s.FindByRegistration(ctx, "2025-002")
	require.NoError(t, err)
	require.NotNil(t, bruno)
	assert.Empty(t, bruno.Attendance)
	assert.Empty(t, bruno.TeachingDays)

	_, err = s.MigrateLegacy(ctx, dump, false)
	assert.ErrorIs(t, err, ErrAlreadyMigrated)

	rep, err = s.MigrateLegacy(ctx, dump, true)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Imported)
	assert.Equal(t, 3, rep.Skipped, "skips count records, one per key")
}

func TestMigrateLegacyMalformedKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dump, err := ParseLegacyDump(strings.NewReader(`{"alunosDashboard": "{oops", "students": "[]"}`))
	require.NoError(t, err)

	rep, err := s.MigrateLegacy(ctx, dump, false)
	require.NoError(t, err)
	assert.Equal(t, []string{LegacyKeyStudents}, rep.Keys)
	assert.Zero(t, rep.Imported)

	fixed, err := ParseLegacyDump(strings.NewReader(`{"alunosDashboard": [
		{"name": "Ana Souza", "registration": "2025-001", "teachingDays": [1], "attendance": ["2025-04-07"]}
	]}`))
	require.NoError(t, err)
	rep, err = s.MigrateLegacy(ctx, fixed, false)
	require.NoError(t, err, "an unreadable key leaves the import unrecorded")
	assert.Equal(t, 1, rep.Imported)

	_, err = s.MigrateLegacy(ctx, fixed, false)
	assert.ErrorIs(t, err, ErrAlreadyMigrated)
}

func TestMigrateLegacyBadRecordKeepsTheRest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dump, err := ParseLegacyDump(strings.NewReader(`{"alunosDashboard": [
		{"name": "Ana Souza", "registration": "2025-001", "class": "9A", "teachingDays": [1, 3, 5], "attendance": ["2025-04-07"]},
		{"name": "Bia Costa", "registration": "2025-003", "class": 9, "teachingDays": [2], "attendance": []},
		null,
		{"name": "Caio Reis", "registration": "2025-004", "teachingDays": [4], "attendance": [{"date": "2025-04-10", "type": "falta"}]}
	]}`))
	require.NoError(t, err)

	rep, err := s.MigrateLegacy(ctx, dump, false)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Imported)
	assert.Equal(t, 2, rep.Invalid)
	assert.Equal(t, []string{LegacyKeyDashboard}, rep.Keys)

	ana, err := s.FindByRegistration(ctx, "2025-001")
	require.NoError(t, err)
	require.NotNil(t, ana)
	assert.Equal(t, attendance.Present, ana.Attendance.Status(day(t, "2025-04-07")))

	caio, err := s.FindByRegistration(ctx, "2025-004")
	require.NoError(t, err)
	require.NotNil(t, caio)
	assert.Equal(t, attendance.Absent, caio.Attendance.Status(day(t, "2025-04-10")))

	bia, err := s.FindByRegistration(ctx, "2025-003")
	require.NoError(t, err)
	assert.Nil(t, bia)

	_, err = s.MigrateLegacy(ctx, dump, false)
	assert.ErrorIs(t, err, ErrAlreadyMigrated)
}
