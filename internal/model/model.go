package model

import (
	"time"

	"dashboard/internal/attendance"
	"dashboard/internal/calendar"
)

// Student represents a registered student and their attendance ledger.
type Student struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Registration string             `json:"registration"`
	School       string             `json:"school"`
	Class        string             `json:"class"`
	TeachingDays []calendar.Weekday `json:"teaching_days"`
	Attendance   attendance.Ledger  `json:"-"`
	Grade        *float64           `json:"grade,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// WorkingDates returns the student's working dates in m.
func (s *Student) WorkingDates(m calendar.Month) []calendar.Date {
	return calendar.WorkingDates(m, s.TeachingDays)
}

// TeachingDayNames returns the weekday names of the student's teaching days.
func (s *Student) TeachingDayNames() []string {
	out := make([]string, 0, len(s.TeachingDays))
	for _, d := range s.TeachingDays {
		out = append(out, d.String())
	}
	return out
}

// StudentView is the JSON shape returned by the API.
type StudentView struct {
	Student
	TeachingDayNames []string           `json:"teaching_day_names"`
	Attendance       []attendance.Entry `json:"attendance"`
}

// View returns the API representation of s.
func (s *Student) View() StudentView {
	return StudentView{
		Student:          *s,
		TeachingDayNames: s.TeachingDayNames(),
		Attendance:       s.Attendance.Entries(),
	}
}

// ClassStats summarizes the students of one class label.
type ClassStats struct {
	ClassName     string   `json:"class_name"`
	TotalStudents int      `json:"total_students"`
	Registrations []string `json:"registrations"`
}
