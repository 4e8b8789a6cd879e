package recon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// TimeEntry is one time-detail row.
type TimeEntry struct {
	RowIndex       int       // one-based sheet row
	Date           time.Time // zero when the cell could not be parsed
	WorkerIDRaw    string
	WorkerIDKey    string
	WorkerName     string
	WorkerNameNorm string
	TaskDesc       string
	TaskDescNorm   string
	Memo           string
	Hours          Cell            // as found in the sheet
	HoursValue     decimal.Decimal // zero when Hours is not numeric
	Project        string
	MismatchReason string // set during classification
}

// HasDate reports whether the date cell was parsed.
func (e TimeEntry) HasDate() bool { return !e.Date.IsZero() }

// MemoMissing reports a blank or whitespace-only memo.
func (e TimeEntry) MemoMissing() bool { return strings.TrimSpace(e.Memo) == "" }

// TimeDetailStrategies is the locator chain for time detail workbooks.
// There is no content heuristic for this sheet kind.
func TimeDetailStrategies() []Strategy {
	return []Strategy{ExactHeaderStrategy{}}
}

// EntryLoad is the result of loading a time detail workbook.
type EntryLoad struct {
	Entries  []TimeEntry
	Location Location
}

// Undated counts entries whose date cell could not be parsed.
func (l EntryLoad) Undated() int {
	n := 0
	for _, e := range l.Entries {
		if !e.HasDate() {
			n++
		}
	}
	return n
}

// LoadTimeEntries locates the time detail header row (task, date and worker
// id or name) and loads every row below it.
func LoadTimeEntries(wb Workbook) (EntryLoad, error) {
	loc, err := Resolve(wb, SheetTimeDetail, TimeDetailColumns, TimeDetailStrategies()...)
	if err != nil {
		return EntryLoad{}, err
	}
	entries, err := EntriesFromLocation(loc)
	if err != nil {
		return EntryLoad{}, err
	}
	return EntryLoad{Entries: entries, Location: loc}, nil
}

// EntriesFromLocation builds entries from the data rows of a located sheet.
func EntriesFromLocation(loc Location) ([]TimeEntry, error) {
	var entries []TimeEntry
	for i, row := range loc.DataRows() {
		task := loc.Value(row, ColTaskDesc)
		workerID := loc.Value(row, ColWorkerID)
		workerName := loc.Value(row, ColResourceName)
		if task.IsBlank() && workerID.IsBlank() && workerName.IsBlank() {
			continue
		}
		date, _ := ParseDate(loc.Value(row, ColDate))
		hours := loc.Value(row, ColHours)

		e := TimeEntry{
			RowIndex:       loc.HeaderRow + 1 + i + 1,
			Date:           date,
			WorkerIDRaw:    workerID.Trimmed(),
			WorkerIDKey:    NormalizeWorkerID(workerID.String()),
			WorkerName:     workerName.Trimmed(),
			WorkerNameNorm: NormalizeName(workerName.String()),
			TaskDesc:       task.Trimmed(),
			TaskDescNorm:   NormalizeText(task.String()),
			Memo:           loc.Value(row, ColMemo).Trimmed(),
			Hours:          hours,
			HoursValue:     ParseHours(hours),
			Project:        loc.Value(row, ColProject).Trimmed(),
		}
		if e.TaskDesc == "" && e.WorkerName == "" && e.WorkerIDRaw == "" {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, &NoRowsError{Kind: SheetTimeDetail, SheetName: loc.SheetName(), HeaderRow: loc.HeaderRow}
	}
	return entries, nil
}

// =============================================================================
// CELL PARSING
// =============================================================================

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01/02/06",
	"1-2-2006",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006/01/02",
	"2006.01.02",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseDate converts a cell to a day:
//
//	Date   -> truncated to the day
//	Number -> spreadsheet serial date (1900 date system)
//	Text   -> first matching calendar layout, truncated to the day
//
// Anything else reports false.
func ParseDate(c Cell) (time.Time, bool) {
	switch c.Kind {
	case CellDate:
		return Day(c.Date), true
	case CellNumber:
		return serialDay(c.Number)
	case CellText:
		text := strings.TrimSpace(c.Text)
		if text == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return Day(t), true
			}
		}
	}
	return time.Time{}, false
}

func serialDay(serial float64) (time.Time, bool) {
	if serial < 1 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return Day(t), true
}

// ParseHours reads a numeric hours cell. Non-numeric content is zero.
func ParseHours(c Cell) decimal.Decimal {
	switch c.Kind {
	case CellNumber:
		return decimal.NewFromFloat(c.Number)
	case CellText:
		if d, err := decimal.NewFromString(strings.TrimSpace(c.Text)); err == nil {
			return d
		}
	}
	return decimal.Zero
}
