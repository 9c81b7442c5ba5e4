package calendar

// Week is a group of dates from the same Monday-start calendar week of a month.
type Week struct {
	Index int    `json:"index"`
	Dates []Date `json:"dates"`
}

// Slot is one Monday..Friday position of a week row.
type Slot struct {
	Date  Date
	Valid bool
}

// WeekOfMonth returns the zero-based Monday-start week index of d within its month.
func WeekOfMonth(d Date) int {
	offset := int(MonthOf(d).First().Weekday()) - 1
	return (d.Day + offset - 1) / 7
}

// Partition groups ascending dates into week buckets. A bucket ends whenever the
// week-of-month index changes between consecutive dates.
func Partition(dates []Date) []Week {
	var weeks []Week
	for i, d := range dates {
		idx := WeekOfMonth(d)
		if i == 0 || idx != weeks[len(weeks)-1].Index || !sameMonth(d, dates[i-1]) {
			weeks = append(weeks, Week{Index: idx})
		}
		last := &weeks[len(weeks)-1]
		last.Dates = append(last.Dates, d)
	}
	return weeks
}

// Slots expands w into a fixed Monday..Friday row; weekdays without a date are empty.
func (w Week) Slots() [DaysPerWeek]Slot {
	var row [DaysPerWeek]Slot
	for _, d := range w.Dates {
		wd := d.Weekday()
		if !wd.IsTeachingDay() {
			continue
		}
		row[wd-Monday] = Slot{Date: d, Valid: true}
	}
	return row
}

func sameMonth(a, b Date) bool { return a.Year == b.Year && a.Month == b.Month }
