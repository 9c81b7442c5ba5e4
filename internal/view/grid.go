// Package view maps a student's partitioned working weeks and ledger onto a renderable
// Monday..Friday grid.
package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"dashboard/internal/attendance"
	"dashboard/internal/calendar"
)

// CellState is the visual status of a cell.
type CellState string

const (
	StateUnmarked CellState = "unmarked"
	StatePresent  CellState = "present"
	StateAbsent   CellState = "absent"
)

func stateOf(s attendance.Status) CellState {
	switch s {
	case attendance.Present:
		return StatePresent
	case attendance.Absent:
		return StateAbsent
	}
	return StateUnmarked
}

// Cell is one slot of a row. Empty cells carry no date.
type Cell struct {
	Empty   bool             `json:"empty"`
	Date    *calendar.Date   `json:"date,omitempty"`
	Day     int              `json:"day,omitempty"`
	Weekday calendar.Weekday `json:"weekday"`
	State   CellState        `json:"state,omitempty"`
	Locked  bool             `json:"locked,omitempty"`
}

// Row is one calendar week.
type Row struct {
	Week  int                        `json:"week"`
	Cells [calendar.DaysPerWeek]Cell `json:"cells"`
}

// Grid is the renderable month calendar of a student.
type Grid struct {
	Month   calendar.Month               `json:"month"`
	Today   calendar.Date                `json:"today"`
	Headers [calendar.DaysPerWeek]string `json:"headers"`
	Rows    []Row                        `json:"rows"`
	Summary attendance.Summary           `json:"summary"`
}

// Build lays out the weeks of m and decorates each working date with its ledger status
// and lock state against today. It never modifies the ledger.
func Build(m calendar.Month, weeks []calendar.Week, ledger attendance.Ledger, today calendar.Date) Grid {
	g := Grid{Month: m, Today: today, Rows: make([]Row, 0, len(weeks))}
	for i := range g.Headers {
		g.Headers[i] = (calendar.Monday + calendar.Weekday(i)).Short()
	}

	var working []calendar.Date
	for _, w := range weeks {
		row := Row{Week: w.Index}
		for i, slot := range w.Slots() {
			wd := calendar.Monday + calendar.Weekday(i)
			if !slot.Valid {
				row.Cells[i] = Cell{Empty: true, Weekday: wd}
				continue
			}
			d := slot.Date
			row.Cells[i] = Cell{
				Date:    &d,
				Day:     d.Day,
				Weekday: wd,
				State:   stateOf(ledger.Status(d)),
				Locked:  !calendar.Editable(d, today),
			}
		}
		working = append(working, w.Dates...)
		g.Rows = append(g.Rows, row)
	}
	g.Summary = attendance.Aggregate(ledger, working)
	return g
}

// Cell returns the cell holding d, if the grid has one.
func (g Grid) Cell(d calendar.Date) (Cell, bool) {
	for _, r := range g.Rows {
		for _, c := range r.Cells {
			if c.Date != nil && *c.Date == d {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// WriteText renders the grid as a plain-text table.
// Marks: "P" present, "A" absent, "." unmarked, "~" locked.
func (g Grid) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", g.Month)
	fmt.Fprintln(tw, strings.Join(g.Headers[:], "\t"))
	for _, r := range g.Rows {
		cols := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			cols[i] = c.text()
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	fmt.Fprintf(tw, "present %d\tabsent %d\tworking days %d\n", g.Summary.Present, g.Summary.Absent, g.Summary.Total)
	return tw.Flush()
}

func (c Cell) text() string {
	if c.Empty {
		return ""
	}
	mark := "."
	switch {
	case c.Locked:
		mark = "~"
	case c.State == StatePresent:
		mark = "P"
	case c.State == StateAbsent:
		mark = "A"
	}
	return fmt.Sprintf("%02d%s", c.Day, mark)
}
