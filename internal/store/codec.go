package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"dashboard/internal/attendance"
	"dashboard/internal/calendar"
)

// Wire values of the typed attendance records.
const (
	markPresent = "presenca"
	markAbsent  = "falta"
)

// columnKind tags which representation an attendance column was stored in.
type columnKind int

const (
	kindEmpty columnKind = iota
	kindDates            // ["2025-04-07", ...], presence only
	kindRecords          // [{"date": "2025-04-07", "type": "presenca"}, ...]
	kindMixed
)

func (k columnKind) String() string {
	switch k {
	case kindDates:
		return "dates"
	case kindRecords:
		return "records"
	case kindMixed:
		return "mixed"
	}
	return "empty"
}

type attendanceRecord struct {
	Date string `json:"date"`
	Type string `json:"type"`
}

// attendanceColumn is the decoded attendance column before normalization.
type attendanceColumn struct {
	Kind    columnKind
	Dates   []string
	Records []attendanceRecord
	Invalid int
}

// decodeAttendance decodes either representation, element by element. Elements that are
// neither a string nor a record are counted in Invalid.
func decodeAttendance(raw []byte) (attendanceColumn, error) {
	var col attendanceColumn
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return col, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return col, fmt.Errorf("attendance is not a JSON list: %w", err)
	}
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 {
			col.Invalid++
			continue
		}
		switch e[0] {
		case '"':
			var s string
			if err := json.Unmarshal(e, &s); err != nil {
				col.Invalid++
				continue
			}
			col.Dates = append(col.Dates, s)
		case '{':
			var r attendanceRecord
			if err := json.Unmarshal(e, &r); err != nil {
				col.Invalid++
				continue
			}
			col.Records = append(col.Records, r)
		default:
			col.Invalid++
		}
	}

	switch {
	case len(col.Dates) > 0 && len(col.Records) > 0:
		col.Kind = kindMixed
	case len(col.Dates) > 0:
		col.Kind = kindDates
	case len(col.Records) > 0:
		col.Kind = kindRecords
	}
	return col, nil
}

// Ledger normalizes the column to the three-state form. Plain dates are presence marks;
// a typed record for the same date takes precedence. It returns the number of entries
// that could not be interpreted.
func (c attendanceColumn) Ledger() (attendance.Ledger, int) {
	l := make(attendance.Ledger, len(c.Dates)+len(c.Records))
	skipped := c.Invalid
	for _, s := range c.Dates {
		d, err := parseStoredDate(s)
		if err != nil {
			skipped++
			continue
		}
		l[d] = attendance.Present
	}
	for _, r := range c.Records {
		d, err := parseStoredDate(r.Date)
		if err != nil {
			skipped++
			continue
		}
		switch r.Type {
		case markPresent, string(attendance.Present):
			l[d] = attendance.Present
		case markAbsent, string(attendance.Absent):
			l[d] = attendance.Absent
		default:
			skipped++
		}
	}
	return l, skipped
}

// parseStoredDate accepts a calendar date or a full ISO timestamp.
func parseStoredDate(s string) (calendar.Date, error) {
	if len(s) > len(calendar.DateLayout) {
		s = s[:len(calendar.DateLayout)]
	}
	return calendar.ParseDate(s)
}

// encodeAttendance writes the ledger as typed records sorted by date.
func encodeAttendance(l attendance.Ledger) ([]byte, error) {
	records := make([]attendanceRecord, 0, len(l))
	for _, e := range l.Entries() {
		typ := markPresent
		if e.Status == attendance.Absent {
			typ = markAbsent
		}
		records = append(records, attendanceRecord{Date: e.Date.String(), Type: typ})
	}
	return json.Marshal(records)
}

// decodeTeachingDays reads the teaching_days column, dropping values outside Monday..Friday
// and duplicates, and sorting the result.
func decodeTeachingDays(raw []byte) ([]calendar.Weekday, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("teaching days is not a JSON list of integers: %w", err)
	}
	return NormalizeTeachingDays(ints), nil
}

// NormalizeTeachingDays keeps the distinct values in 1..5, ascending.
func NormalizeTeachingDays(ints []int) []calendar.Weekday {
	seen := make(map[calendar.Weekday]bool, len(ints))
	out := make([]calendar.Weekday, 0, len(ints))
	for _, v := range ints {
		wd := calendar.Weekday(v)
		if !wd.IsTeachingDay() || seen[wd] {
			continue
		}
		seen[wd] = true
		out = append(out, wd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func encodeTeachingDays(days []calendar.Weekday) ([]byte, error) {
	ints := make([]int, 0, len(days))
	for _, d := range days {
		ints = append(ints, int(d))
	}
	return json.Marshal(ints)
}
