/*
cell.go - Decoded workbook abstraction

PURPOSE:
  The reconciliation core never reads file bytes. A spreadsheet decoder
  (see package workbook) hands it a Workbook: an ordered list of named
  sheets, each a grid of Cells.

CELL VALUES:
  A spreadsheet cell holds text, a number, a date, or nothing. Cell is a
  tagged union over those four shapes so that every consumer states which
  shapes it accepts instead of coercing implicitly:

    Empty            - no value, or a zero-length string
    Text(string)     - any string content (kept verbatim, not trimmed)
    Number(float64)  - numeric content; also spreadsheet serial dates
    Date(time.Time)  - native date values

SEE ALSO:
  - locator.go: header detection over Sheet rows
  - entry.go: polymorphic date parsing (ParseDate)
*/
package recon

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CELL - Tagged union over spreadsheet values
// =============================================================================

type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

func (k CellKind) String() string {
	switch k {
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	case CellDate:
		return "date"
	default:
		return "empty"
	}
}

// Cell is a single spreadsheet value. Only the field matching Kind is set.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   time.Time
}

// Constructors
func Empty() Cell { return Cell{} }

func Text(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

func Number(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

func Date(t time.Time) Cell {
	if t.IsZero() {
		return Cell{}
	}
	return Cell{Kind: CellDate, Date: t}
}

// IsBlank reports whether the cell carries no value at all.
// Whitespace-only text is NOT blank; callers trim where the rules say so.
func (c Cell) IsBlank() bool { return c.Kind == CellEmpty }

// String renders the cell the way it is shown in reports and compared
// during normalization.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Date.Format(isoDate)
	default:
		return ""
	}
}

// Trimmed is String with surrounding whitespace removed.
func (c Cell) Trimmed() string { return strings.TrimSpace(c.String()) }

// =============================================================================
// WORKBOOK - Ordered sheets of cells
// =============================================================================

// Sheet is one named grid. Rows may be ragged.
type Sheet struct {
	Name string
	Rows [][]Cell
}

// Cell returns the value at (row, col), or Empty when out of bounds.
func (s Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) || col < 0 {
		return Empty()
	}
	r := s.Rows[row]
	if col >= len(r) {
		return Empty()
	}
	return r[col]
}

// Head returns at most the first n rows.
func (s Sheet) Head(n int) [][]Cell {
	if n >= len(s.Rows) {
		return s.Rows
	}
	return s.Rows[:n]
}

// Workbook is the decoded input to every loader.
type Workbook struct {
	Sheets []Sheet
}

// SheetNames returns sheet names in workbook order.
func (wb Workbook) SheetNames() []string {
	names := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		names[i] = s.Name
	}
	return names
}

// TextRow is a convenience for building rows from plain strings.
// Empty strings become Empty cells.
func TextRow(values ...string) []Cell {
	row := make([]Cell, len(values))
	for i, v := range values {
		row[i] = Text(v)
	}
	return row
}
