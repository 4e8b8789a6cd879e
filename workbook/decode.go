/*
Package workbook converts spreadsheet files to and from recon.Workbook.

DECODING:
  .xlsx / .xlsm   excelize, raw cell values typed through GetCellType
  .xls            extrame/xls (BIFF8)
  .csv            encoding/csv, every cell is text

  When the file name has no known extension the leading bytes decide:
  "PK" is a zip container (xlsx), D0 CF 11 E0 is an OLE2 container (xls),
  anything else is read as CSV.

ENCODING:
  report.go        admin reconciliation report
  attestations.go  completion attachment
*/
package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/warp/timesheet-recon/recon"
)

// Format is a supported spreadsheet container.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// DetectFormat picks a decoder from the file name, then from magic bytes.
func DetectFormat(filename string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".csv", ".txt":
		return FormatCSV
	}
	switch {
	case bytes.HasPrefix(head, []byte("PK")):
		return FormatXLSX
	case bytes.HasPrefix(head, []byte{0xD0, 0xCF, 0x11, 0xE0}):
		return FormatXLS
	default:
		return FormatCSV
	}
}

// Decode reads a whole spreadsheet into memory and converts it.
func Decode(r io.Reader, filename string) (recon.Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return recon.Workbook{}, fmt.Errorf("read %s: %w", filename, err)
	}
	var wb recon.Workbook
	switch DetectFormat(filename, data) {
	case FormatXLSX:
		wb, err = decodeXLSX(data)
	case FormatXLS:
		wb, err = decodeXLS(data)
	default:
		wb, err = decodeCSV(data, filename)
	}
	if err != nil {
		return recon.Workbook{}, fmt.Errorf("decode %s: %w", filename, err)
	}
	if len(wb.Sheets) == 0 {
		return recon.Workbook{}, fmt.Errorf("decode %s: %w", filename, ErrEmptyWorkbook)
	}
	return wb, nil
}

// =============================================================================
// XLSX
// =============================================================================

func decodeXLSX(data []byte) (recon.Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return recon.Workbook{}, err
	}
	defer func() { _ = f.Close() }()

	var wb recon.Workbook
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return recon.Workbook{}, fmt.Errorf("sheet %q: %w", name, err)
		}
		sheet := recon.Sheet{Name: name, Rows: make([][]recon.Cell, len(rows))}
		for r, row := range rows {
			cells := make([]recon.Cell, len(row))
			for c, raw := range row {
				if raw == "" {
					continue
				}
				ref, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return recon.Workbook{}, err
				}
				kind, err := f.GetCellType(name, ref)
				if err != nil {
					kind = excelize.CellTypeUnset
				}
				cells[c] = xlsxCell(kind, raw)
			}
			sheet.Rows[r] = cells
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

func xlsxCell(kind excelize.CellType, raw string) recon.Cell {
	switch kind {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return recon.Text(raw)
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return recon.Date(t)
		}
		if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
			return recon.Date(t)
		}
		return recon.Text(raw)
	case excelize.CellTypeBool:
		return recon.Text(raw)
	}
	return numberOrText(raw)
}

// =============================================================================
// XLS
// =============================================================================

func decodeXLS(data []byte) (recon.Workbook, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return recon.Workbook{}, err
	}
	var wb recon.Workbook
	for i := 0; i < book.NumSheets(); i++ {
		ws := book.GetSheet(i)
		if ws == nil {
			continue
		}
		sheet := recon.Sheet{Name: ws.Name}
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				sheet.Rows = append(sheet.Rows, nil)
				continue
			}
			cells := make([]recon.Cell, row.LastCol()+1)
			for c := row.FirstCol(); c <= row.LastCol(); c++ {
				cells[c] = numberOrText(row.Col(c))
			}
			sheet.Rows = append(sheet.Rows, cells)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

// =============================================================================
// CSV
// =============================================================================

func decodeCSV(data []byte, filename string) (recon.Workbook, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return recon.Workbook{}, err
	}
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if name == "" || name == "." {
		name = "Sheet1"
	}
	sheet := recon.Sheet{Name: name, Rows: make([][]recon.Cell, len(records))}
	for r, record := range records {
		sheet.Rows[r] = recon.TextRow(record...)
	}
	return recon.Workbook{Sheets: []recon.Sheet{sheet}}, nil
}

func numberOrText(raw string) recon.Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return recon.Text(raw)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return recon.Number(f)
	}
	return recon.Text(raw)
}
