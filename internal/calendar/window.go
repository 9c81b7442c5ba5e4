package calendar

import "time"

// Editable reports whether d can still be marked: past and present dates are editable,
// dates strictly after today are locked.
func Editable(d, today Date) bool {
	return !d.After(today)
}

// EditWindow evaluates the edit window against a clock. It never caches "today".
type EditWindow struct {
	Now      func() time.Time
	Location *time.Location
}

// NewEditWindow returns a window backed by time.Now in loc (time.Local when nil).
func NewEditWindow(loc *time.Location) EditWindow {
	return EditWindow{Now: time.Now, Location: loc}
}

// Today returns the current calendar date in the window's location.
func (w EditWindow) Today() Date {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	loc := w.Location
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now().In(loc))
}

// Editable evaluates Editable(d, w.Today()).
func (w EditWindow) Editable(d Date) bool {
	return Editable(d, w.Today())
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
