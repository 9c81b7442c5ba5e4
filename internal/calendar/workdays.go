package calendar

// WorkingDates returns, in ascending order, the dates of m whose weekday is one of days.
// Only Monday..Friday can match; other values are ignored.
func WorkingDates(m Month, days []Weekday) []Date {
	selected := make(map[Weekday]bool, len(days))
	for _, d := range days {
		if d.IsTeachingDay() {
			selected[d] = true
		}
	}
	if len(selected) == 0 {
		return nil
	}

	last := m.Last().Day
	out := make([]Date, 0, last)
	for day := 1; day <= last; day++ {
		d := Date{Year: m.Year, Month: m.Month, Day: day}
		if selected[d.Weekday()] {
			out = append(out, d)
		}
	}
	return out
}

// IsWorkingDate reports whether d is a working date for the given teaching days.
func IsWorkingDate(d Date, days []Weekday) bool {
	wd := d.Weekday()
	if !wd.IsTeachingDay() {
		return false
	}
	for _, sel := range days {
		if sel == wd {
			return true
		}
	}
	return false
}
