package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dashboard/internal/attendance"
	"dashboard/internal/calendar"
	"dashboard/internal/model"
	"dashboard/internal/view"
)

func TestCalendarWorkbook(t *testing.T) {
	m, err := calendar.ParseMonth("2025-04")
	require.NoError(t, err)
	days := []calendar.Weekday{calendar.Monday, calendar.Wednesday, calendar.Friday}
	st := &model.Student{Name: "Ana Souza", Registration: "2025-001", Class: "9A", TeachingDays: days}
	ledger := attendance.Ledger{
		calendar.NewDate(2025, 4, 7): attendance.Present,
		calendar.NewDate(2025, 4, 9): attendance.Absent,
	}
	g := view.Build(m, calendar.Partition(calendar.WorkingDates(m, days)), ledger, calendar.NewDate(2025, 4, 15))

	var buf bytes.Buffer
	require.NoError(t, Calendar(&buf, st, g))

	xl, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows(SheetName)
	require.NoError(t, err)

	assert.Equal(t, []string{"Student", "Ana Souza"}, rows[0])
	assert.Equal(t, []string{"Month", "2025-04"}, rows[3])
	assert.Equal(t, []string{"Week", "Mon", "Tue", "Wed", "Thu", "Fri"}, rows[headerRow-1])

	second := rows[firstWeek]
	assert.Equal(t, "2", second[0])
	assert.Equal(t, "07 Present", second[1])
	assert.Equal(t, "09 Absent", second[3])
	assert.Equal(t, "11 -", second[5])

	unlocked, err := xl.GetCellValue(SheetName, "B9")
	require.NoError(t, err)
	assert.Equal(t, "14 -", unlocked)
	locked, err := xl.GetCellValue(SheetName, "D11")
	require.NoError(t, err)
	assert.Equal(t, "30 locked", locked)
	assert.Len(t, xl.GetSheetList(), 1)

	present, err := xl.GetCellValue(SheetName, "B13")
	require.NoError(t, err)
	assert.Equal(t, "1", present)
	total, err := xl.GetCellValue(SheetName, "B15")
	require.NoError(t, err)
	assert.Equal(t, "13", total)
}

func TestSheetKeepsFirstError(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sh := &sheet{f: f, name: "Missing"}
	sh.set("A1", "x")
	require.Error(t, sh.err)
	first := sh.err
	sh.style("A1", "B2", 0)
	sh.width(1, 2, 10)
	assert.Equal(t, first, sh.err)

	sh = &sheet{f: f, name: "Sheet1"}
	sh.style(sh.cell(0, 1), "B1", 0)
	assert.Error(t, sh.err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCalendarReportsWriteError(t *testing.T) {
	m, err := calendar.ParseMonth("2025-04")
	require.NoError(t, err)
	st := &model.Student{Name: "Ana Souza", Registration: "2025-001", TeachingDays: []calendar.Weekday{calendar.Monday}}
	g := view.Build(m, calendar.Partition(st.WorkingDates(m)), attendance.Ledger{}, calendar.NewDate(2025, 4, 15))

	assert.ErrorContains(t, Calendar(failingWriter{}, st, g), "disk full")
}
