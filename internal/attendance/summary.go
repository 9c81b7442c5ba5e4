package attendance

import "dashboard/internal/calendar"

// Summary holds the counts of a ledger over a set of working dates.
type Summary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Total   int `json:"total"`
}

// Unmarked is the number of working dates without a mark.
func (s Summary) Unmarked() int { return s.Total - s.Present - s.Absent }

// Complete reports whether every working date has been marked.
func (s Summary) Complete() bool { return s.Total > 0 && s.Unmarked() == 0 }

// Rate is the share of present marks among marked dates, 0 when nothing is marked.
func (s Summary) Rate() float64 {
	marked := s.Present + s.Absent
	if marked == 0 {
		return 0
	}
	return float64(s.Present) / float64(marked)
}

// Aggregate counts marks over workingDates only; ledger entries for other dates are
// ignored. Duplicate working dates are counted once.
func Aggregate(l Ledger, workingDates []calendar.Date) Summary {
	var s Summary
	seen := make(map[calendar.Date]bool, len(workingDates))
	for _, d := range workingDates {
		if seen[d] {
			continue
		}
		seen[d] = true
		s.Total++
		switch l.Status(d) {
		case Present:
			s.Present++
		case Absent:
			s.Absent++
		}
	}
	return s
}
