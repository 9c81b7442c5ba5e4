// Package export writes a student's month calendar to a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"dashboard/internal/model"
	"dashboard/internal/view"
)

// SheetName is the name of the single worksheet written by Calendar.
const SheetName = "Attendance"

// Row layout of the sheet.
const (
	headerRow = 6
	firstWeek = headerRow + 1
)

var stateLabels = map[view.CellState]string{
	view.StateUnmarked: "-",
	view.StatePresent:  "Present",
	view.StateAbsent:   "Absent",
}

// Calendar renders the grid of st as an .xlsx workbook into w.
func Calendar(w io.Writer, st *model.Student, g view.Grid) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	sh := &sheet{f: f, name: SheetName}

	info := [][2]any{
		{"Student", st.Name},
		{"Registration", st.Registration},
		{"Class", st.Class},
		{"Month", g.Month.String()},
	}
	for i, kv := range info {
		row := i + 1
		sh.set(sh.cell(1, row), kv[0])
		sh.set(sh.cell(2, row), kv[1])
	}

	sh.set(sh.cell(1, headerRow), "Week")
	for i, h := range g.Headers {
		sh.set(sh.cell(i+2, headerRow), h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    borders(),
	})
	if err != nil {
		return err
	}
	lastCol := len(g.Headers) + 1
	sh.style(sh.cell(1, headerRow), sh.cell(lastCol, headerRow), headerStyle)

	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	sh.style("A1", "A4", labelStyle)

	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    borders(),
	})
	if err != nil {
		return err
	}

	row := firstWeek
	for _, r := range g.Rows {
		sh.set(sh.cell(1, row), r.Week+1)
		for i, c := range r.Cells {
			if c.Empty {
				continue
			}
			sh.set(sh.cell(i+2, row), cellText(c))
		}
		sh.style(sh.cell(1, row), sh.cell(lastCol, row), cellStyle)
		row++
	}

	row++
	summary := [][2]any{
		{"Present", g.Summary.Present},
		{"Absent", g.Summary.Absent},
		{"Working days", g.Summary.Total},
	}
	for _, kv := range summary {
		label := sh.cell(1, row)
		sh.set(label, kv[0])
		sh.set(sh.cell(2, row), kv[1])
		sh.style(label, label, labelStyle)
		row++
	}

	sh.width(1, 1, 14)
	sh.width(2, lastCol, 16)
	if sh.err != nil {
		return sh.err
	}
	return f.Write(w)
}

// sheet writes into one worksheet and keeps the first error; later calls are no-ops.
type sheet struct {
	f    *excelize.File
	name string
	err  error
}

func (s *sheet) cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if s.err == nil && err != nil {
		s.err = err
	}
	return name
}

func (s *sheet) set(cell string, v any) {
	if s.err == nil {
		s.err = s.f.SetCellValue(s.name, cell, v)
	}
}

func (s *sheet) style(from, to string, id int) {
	if s.err == nil {
		s.err = s.f.SetCellStyle(s.name, from, to, id)
	}
}

func (s *sheet) width(from, to int, w float64) {
	if s.err != nil {
		return
	}
	first, err := excelize.ColumnNumberToName(from)
	if err != nil {
		s.err = err
		return
	}
	last, err := excelize.ColumnNumberToName(to)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetColWidth(s.name, first, last, w)
}

func cellText(c view.Cell) string {
	label := stateLabels[c.State]
	if c.Locked {
		label = "locked"
	}
	return fmt.Sprintf("%02d %s", c.Day, label)
}

func borders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
}
