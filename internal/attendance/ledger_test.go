package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard/internal/calendar"
)

func date(t *testing.T, s string) calendar.Date {
	t.Helper()
	d, err := calendar.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestToggleCycle(t *testing.T) {
	today := date(t, "2025-04-30")
	d := date(t, "2025-04-07")

	l1 := Ledger{}.Toggle(d, today)
	assert.Equal(t, Ledger{d: Present}, l1)

	l2 := l1.Toggle(d, today)
	assert.Equal(t, Ledger{d: Absent}, l2)

	l3 := l2.Toggle(d, today)
	assert.Empty(t, l3)

	assert.Equal(t, Ledger{d: Present}, l1, "toggle must not mutate its receiver")
}

func TestToggleThreeTimesIsIdentity(t *testing.T) {
	today := date(t, "2025-04-30")
	base := Ledger{
		date(t, "2025-04-02"): Present,
		date(t, "2025-04-04"): Absent,
	}
	for _, s := range []string{"2025-04-02", "2025-04-04", "2025-04-07", "2025-04-30"} {
		d := date(t, s)
		got := base.Toggle(d, today).Toggle(d, today).Toggle(d, today)
		assert.True(t, base.Equal(got), "cycle from %s", s)
	}
}

func TestToggleLockedDateIsNoop(t *testing.T) {
	today := date(t, "2025-04-10")
	future := date(t, "2025-04-11")
	base := Ledger{date(t, "2025-04-09"): Present}

	got := base.Toggle(future, today)

	assert.Equal(t, base, got)
	assert.Equal(t, Unmarked, got.Status(future))
}

func TestNilLedgerToggle(t *testing.T) {
	var l Ledger
	d := date(t, "2025-04-07")

	assert.Equal(t, Ledger{d: Present}, l.Toggle(d, d))
}

func TestAggregate(t *testing.T) {
	working := calendar.WorkingDates(calendar.Month{Year: 2025, Month: time.April},
		[]calendar.Weekday{calendar.Monday, calendar.Wednesday, calendar.Friday})
	l := Ledger{
		date(t, "2025-04-02"): Present,
		date(t, "2025-04-04"): Absent,
		date(t, "2025-04-07"): Present,
		date(t, "2025-04-08"): Present, // Tuesday, not a working date
		date(t, "2025-03-31"): Absent,  // previous month
	}

	s := Aggregate(l, working)

	assert.Equal(t, Summary{Present: 2, Absent: 1, Total: 13}, s)
	assert.Equal(t, 10, s.Unmarked())
	assert.False(t, s.Complete())
	assert.InDelta(t, 2.0/3.0, s.Rate(), 1e-9)
}

func TestAggregateBound(t *testing.T) {
	working := calendar.WorkingDates(calendar.Month{Year: 2025, Month: time.April},
		[]calendar.Weekday{calendar.Tuesday})
	today := date(t, "2025-04-30")
	l := Ledger{}

	for i, d := range working {
		s := Aggregate(l, working)
		assert.LessOrEqual(t, s.Present+s.Absent, s.Total)
		assert.False(t, s.Complete())
		l = l.Toggle(d, today)
		if i%2 == 1 {
			l = l.Toggle(d, today)
		}
	}

	s := Aggregate(l, working)
	assert.Equal(t, s.Total, s.Present+s.Absent)
	assert.True(t, s.Complete())
}

func TestEntriesSortedAndFromEntries(t *testing.T) {
	l := Ledger{
		date(t, "2025-04-09"): Absent,
		date(t, "2025-04-02"): Present,
	}

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-04-02", entries[0].Date.String())
	assert.Equal(t, l, FromEntries(entries))

	cleared := FromEntries(append(entries, Entry{Date: date(t, "2025-04-02")}))
	assert.Equal(t, Ledger{date(t, "2025-04-09"): Absent}, cleared)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("absent")
	require.NoError(t, err)
	assert.Equal(t, Absent, s)

	_, err = ParseStatus("late")
	assert.Error(t, err)
	assert.Equal(t, "unmarked", Unmarked.String())
}
