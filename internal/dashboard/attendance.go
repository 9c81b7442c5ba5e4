package dashboard

import (
	"context"

	"dashboard/internal/attendance"
	"dashboard/internal/calendar"
	"dashboard/internal/metrics"
	"dashboard/internal/model"
	"dashboard/internal/view"
)

// StudentCalendar is a student together with one rendered month.
type StudentCalendar struct {
	Student *model.Student `json:"student"`
	Grid    view.Grid      `json:"grid"`
}

// Calendar builds the month grid of the student. A zero month means the current one.
func (s *Service) Calendar(ctx context.Context, registration string, m calendar.Month) (StudentCalendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.find(ctx, registration)
	if err != nil {
		return StudentCalendar{}, err
	}
	today := s.window.Today()
	if m.IsZero() {
		m = calendar.MonthOf(today)
	}
	return StudentCalendar{Student: st, Grid: grid(st, m, today)}, nil
}

func grid(st *model.Student, m calendar.Month, today calendar.Date) view.Grid {
	return view.Build(m, calendar.Partition(st.WorkingDates(m)), st.Attendance, today)
}

// ToggleResult is the outcome of a toggle intent. Changed is false when the date was locked.
type ToggleResult struct {
	Date    calendar.Date     `json:"date"`
	Status  attendance.Status `json:"status"`
	Changed bool              `json:"changed"`
	Grid    view.Grid         `json:"grid"`
}

// Toggle advances the mark of one working date through unmarked, present and absent,
// persists the ledger and returns the rebuilt grid of the date's month. Future dates are
// left as they are. Dates outside the student's teaching days yield ErrNotWorkingDay.
func (s *Service) Toggle(ctx context.Context, registration string, d calendar.Date) (ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.find(ctx, registration)
	if err != nil {
		return ToggleResult{}, err
	}
	if !calendar.IsWorkingDate(d, st.TeachingDays) {
		return ToggleResult{}, ErrNotWorkingDay
	}

	today := s.window.Today()
	next := st.Attendance.Toggle(d, today)
	res := ToggleResult{Date: d}
	if !calendar.Editable(d, today) {
		metrics.AttendanceToggles.WithLabelValues(metrics.ToggleLocked).Inc()
		s.log.Debug("toggle on locked date ignored", "registration", st.Registration, "date", d.String())
	} else {
		prev := st.Attendance
		st.Attendance = next
		if err := s.dir.Save(ctx, st); err != nil {
			st.Attendance = prev
			return ToggleResult{}, err
		}
		res.Changed = true
		result := next.Status(d).String()
		if next.Status(d) == attendance.Unmarked {
			result = metrics.ToggleCleared
		}
		metrics.AttendanceToggles.WithLabelValues(result).Inc()
	}
	res.Status = st.Attendance.Status(d)
	res.Grid = grid(st, calendar.MonthOf(d), today)
	return res, nil
}

// SaveResult reports how many entries of a bulk save changed the ledger and how many were
// rejected. Entries repeating the current mark count in neither.
type SaveResult struct {
	Saved   int                `json:"saved"`
	Ignored int                `json:"ignored"`
	Summary attendance.Summary `json:"summary"`
}

// SaveAttendance merges entries into the student's ledger and persists it. An unmarked
// entry clears its date. Entries on locked dates, on dates outside the teaching days or
// with an unknown status are ignored. Summary covers the month of today.
func (s *Service) SaveAttendance(ctx context.Context, registration string, entries []attendance.Entry) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.find(ctx, registration)
	if err != nil {
		return SaveResult{}, err
	}
	ledger, applied, ignored := s.apply(st.Attendance, st.TeachingDays, entries)
	if applied > 0 {
		prev := st.Attendance
		st.Attendance = ledger
		if err := s.dir.Save(ctx, st); err != nil {
			st.Attendance = prev
			return SaveResult{}, err
		}
	}
	if ignored > 0 {
		s.log.Warn("ignored attendance entries", "registration", st.Registration, "ignored", ignored)
	}

	today := s.window.Today()
	return SaveResult{
		Saved:   applied,
		Ignored: ignored,
		Summary: attendance.Aggregate(ledger, st.WorkingDates(calendar.MonthOf(today))),
	}, nil
}

// apply returns a copy of l with the valid entries applied, the number of entries that
// changed a mark and the number of ignored ones.
func (s *Service) apply(l attendance.Ledger, days []calendar.Weekday, entries []attendance.Entry) (attendance.Ledger, int, int) {
	out := l.Clone()
	today := s.window.Today()
	applied, ignored := 0, 0
	for _, e := range entries {
		switch {
		case e.Date.IsZero(),
			!calendar.IsWorkingDate(e.Date, days),
			!calendar.Editable(e.Date, today):
			ignored++
			continue
		case e.Status != attendance.Unmarked && e.Status != attendance.Present && e.Status != attendance.Absent:
			ignored++
			continue
		}
		if out.Status(e.Date) == e.Status {
			continue
		}
		if e.Status == attendance.Unmarked {
			delete(out, e.Date)
		} else {
			out[e.Date] = e.Status
		}
		applied++
	}
	return out, applied, ignored
}
