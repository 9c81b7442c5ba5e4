package attendance

import (
	"fmt"
	"sort"

	"dashboard/internal/calendar"
)

// Status is the mark recorded for a date. The zero value means unmarked.
type Status string

const (
	Unmarked Status = ""
	Present  Status = "present"
	Absent   Status = "absent"
)

// ParseStatus accepts "present" or "absent".
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case Present, Absent:
		return Status(s), nil
	}
	return Unmarked, fmt.Errorf("invalid attendance status %q", s)
}

// Next returns the status that follows s in the unmarked → present → absent cycle.
func (s Status) Next() Status {
	switch s {
	case Unmarked:
		return Present
	case Present:
		return Absent
	default:
		return Unmarked
	}
}

func (s Status) String() string {
	if s == Unmarked {
		return "unmarked"
	}
	return string(s)
}

// Entry is a single marked date.
type Entry struct {
	Date   calendar.Date `json:"date"`
	Status Status        `json:"status"`
}

// Ledger maps marked dates to their status.
type Ledger map[calendar.Date]Status

// Status returns the mark for d, Unmarked when there is none.
func (l Ledger) Status(d calendar.Date) Status { return l[d] }

// Clone returns an independent copy of l. A nil ledger clones to an empty one.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for d, s := range l {
		out[d] = s
	}
	return out
}

// Toggle advances d one step through the three-state cycle and returns the new ledger.
// Dates after today are locked: the receiver is returned unchanged. The receiver is
// never mutated.
func (l Ledger) Toggle(d, today calendar.Date) Ledger {
	if !calendar.Editable(d, today) {
		return l
	}
	out := l.Clone()
	switch next := l.Status(d).Next(); next {
	case Unmarked:
		delete(out, d)
	default:
		out[d] = next
	}
	return out
}

// Entries returns the ledger sorted by date.
func (l Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l))
	for d, s := range l {
		out = append(out, Entry{Date: d, Status: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// FromEntries builds a ledger from entries; later entries for the same date win and
// unmarked entries remove the date.
func FromEntries(entries []Entry) Ledger {
	out := make(Ledger, len(entries))
	for _, e := range entries {
		if e.Status == Unmarked {
			delete(out, e.Date)
			continue
		}
		out[e.Date] = e.Status
	}
	return out
}

// Equal reports whether both ledgers hold the same marks.
func (l Ledger) Equal(o Ledger) bool {
	if len(l) != len(o) {
		return false
	}
	for d, s := range l {
		if o[d] != s {
			return false
		}
	}
	return true
}
