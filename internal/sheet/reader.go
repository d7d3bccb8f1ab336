// Package sheet wraps spreadsheet access behind a small read-only surface:
// open a workbook, pick a sheet by zero-based index or by name, get back a
// 2-D grid of string cells. Import code never touches excelize directly.
package sheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Selector identifies a sheet within a workbook, either by zero-based index
// or by name. The zero value selects the first sheet.
type Selector struct {
	Index int
	Name  string
}

// ParseSelector interprets a CLI-style sheet argument: a number is a
// zero-based index, anything else is a sheet name.
func ParseSelector(s string) Selector {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Selector{Index: n}
	}
	return Selector{Name: s}
}

func (s Selector) String() string {
	if s.Name != "" {
		return s.Name
	}
	return strconv.Itoa(s.Index)
}

// Workbook is an open spreadsheet file.
type Workbook struct {
	f *excelize.File
}

// Open opens a workbook for reading. The caller must Close it.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{f: f}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// SheetNames returns all sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// resolve maps a Selector to a concrete sheet name.
func (w *Workbook) resolve(sel Selector) (string, error) {
	names := w.f.GetSheetList()
	if sel.Name != "" {
		for _, n := range names {
			if strings.EqualFold(n, sel.Name) {
				return n, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found (have %v)", sel.Name, names)
	}
	if sel.Index < 0 || sel.Index >= len(names) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", sel.Index, len(names))
	}
	return names[sel.Index], nil
}

// Grid reads the selected sheet into a dense 2-D grid of trimmed cell
// strings. Rows are padded to the widest row so positional access is safe.
func (w *Workbook) Grid(sel Selector) ([][]string, error) {
	name, err := w.resolve(sel)
	if err != nil {
		return nil, err
	}
	rows, err := w.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	grid := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, width)
		for j, cell := range row {
			padded[j] = strings.TrimSpace(cell)
		}
		grid[i] = padded
	}
	return grid, nil
}

// ReadGrid is the one-shot form of Open + Grid + Close.
func ReadGrid(path string, sel Selector) ([][]string, error) {
	w, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.Grid(sel)
}

// Cell returns the cell at (row, col) of a grid, or "" when out of range.
// Spreadsheet exports routinely produce ragged rows; out-of-range reads are
// blank cells, not errors.
func Cell(grid [][]string, row, col int) string {
	if row < 0 || row >= len(grid) {
		return ""
	}
	r := grid[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}
