/*
locator.go - Sheet Locator

PURPOSE:
  Spreadsheets arrive with unreliable headers: title rows above the real
  header, extra sheets, renamed columns. The locator finds the sheet and
  header row that carry a required set of semantic columns.

STRATEGY CHAIN:
  Resolve runs strategies in order and returns the first hit:

    ExactHeaderStrategy  - every sheet in order, first 50 rows each, cells
                           mapped through the alias table
    HeuristicStrategy    - first sheet only, columns scored by how much
                           their sampled values look like person names
                           and service lines

  Time detail uses the exact strategy alone.

SEE ALSO:
  - assignment.go: Exact -> Heuristic chain
  - entry.go: Exact only
*/
package recon

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SEMANTIC COLUMNS
// =============================================================================

// Column is a semantic column key, independent of the header text used.
type Column string

const (
	ColResourceName Column = "resourceName"
	ColServiceLine  Column = "serviceLine"
	ColWorkerID     Column = "workerId"
	ColTaskDesc     Column = "taskDesc"
	ColDate         Column = "date"
	ColMemo         Column = "memo"
	ColHours        Column = "hours"
	ColProject      Column = "project"
)

// headerAliases maps semantic keys to accepted header spellings. Spellings
// are compared after NormalizeHeader, so "Worker ID" and "worker_id" match
// "workerid".
var headerAliases = map[Column][]string{
	ColResourceName: {"resourcename", "resource", "employeename", "workername", "worker", "name"},
	ColServiceLine:  {"serviceline", "service line", "service_line"},
	ColWorkerID:     {"workerid", "resourceid", "employeeid", "worker id", "resource id", "employee id"},
	ColTaskDesc:     {"taskdesc", "tascdesc", "taskdescription", "tascdescription"},
	ColDate:         {"date", "workdate", "transactiondate", "timeentrydate"},
	ColMemo:         {"memo", "notes", "comment"},
	ColHours:        {"hours", "hrs"},
	ColProject:      {"project", "projectname"},
}

var headerLookup = buildHeaderLookup()

func buildHeaderLookup() map[string]Column {
	lookup := make(map[string]Column)
	for key, aliases := range headerAliases {
		for _, alias := range aliases {
			lookup[NormalizeHeader(alias)] = key
		}
	}
	return lookup
}

// ColumnFor returns the semantic key for a header cell text.
func ColumnFor(header string) (Column, bool) {
	key, ok := headerLookup[NormalizeHeader(header)]
	return key, ok
}

// ColumnMap maps semantic keys to zero-based column indices.
type ColumnMap map[Column]int

// Has reports whether the key was located.
func (m ColumnMap) Has(key Column) bool {
	_, ok := m[key]
	return ok
}

// Index returns the column index for key, or -1.
func (m ColumnMap) Index(key Column) int {
	if idx, ok := m[key]; ok {
		return idx
	}
	return -1
}

// MapHeaderRow maps every recognized cell of a row. The first occurrence of
// a key wins.
func MapHeaderRow(row []Cell) ColumnMap {
	cols := make(ColumnMap)
	for c, cell := range row {
		if cell.IsBlank() {
			continue
		}
		key, ok := ColumnFor(cell.String())
		if !ok {
			continue
		}
		if _, seen := cols[key]; !seen {
			cols[key] = c
		}
	}
	return cols
}

// =============================================================================
// REQUIREMENTS
// =============================================================================

// Requirement is the set of columns a header row must carry: every column in
// All, plus at least one column of AnyOf when AnyOf is non-empty.
type Requirement struct {
	All   []Column
	AnyOf []Column
}

var (
	AssignmentColumns = Requirement{All: []Column{ColResourceName, ColServiceLine}}
	TimeDetailColumns = Requirement{
		All:   []Column{ColTaskDesc, ColDate},
		AnyOf: []Column{ColWorkerID, ColResourceName},
	}
)

// SatisfiedBy reports whether cols meets the requirement.
func (r Requirement) SatisfiedBy(cols ColumnMap) bool {
	for _, key := range r.All {
		if !cols.Has(key) {
			return false
		}
	}
	if len(r.AnyOf) == 0 {
		return true
	}
	for _, key := range r.AnyOf {
		if cols.Has(key) {
			return true
		}
	}
	return false
}

func (r Requirement) String() string {
	parts := make([]string, 0, len(r.All)+1)
	for _, key := range r.All {
		parts = append(parts, string(key))
	}
	if len(r.AnyOf) > 0 {
		alts := make([]string, len(r.AnyOf))
		for i, key := range r.AnyOf {
			alts[i] = string(key)
		}
		parts = append(parts, "("+strings.Join(alts, " or ")+")")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// =============================================================================
// LOCATION - Discriminated resolver result
// =============================================================================

// LocateMethod records which strategy produced a Location.
type LocateMethod string

const (
	MethodExactHeader LocateMethod = "exact-header"
	MethodHeuristic   LocateMethod = "heuristic"
)

// Location is a located header row. Data rows start at HeaderRow+1.
type Location struct {
	Sheet     Sheet
	HeaderRow int
	Columns   ColumnMap
	Method    LocateMethod
}

// SheetName is the name of the located sheet.
func (l Location) SheetName() string { return l.Sheet.Name }

// DataRows returns the rows after the header row.
func (l Location) DataRows() [][]Cell {
	if l.HeaderRow+1 >= len(l.Sheet.Rows) {
		return nil
	}
	return l.Sheet.Rows[l.HeaderRow+1:]
}

// Value returns the cell for key in row, or Empty when the column was not
// located.
func (l Location) Value(row []Cell, key Column) Cell {
	idx := l.Columns.Index(key)
	if idx < 0 || idx >= len(row) {
		return Empty()
	}
	return row[idx]
}

// =============================================================================
// STRATEGIES
// =============================================================================

// DefaultScanLimit is how many leading rows of a sheet are inspected.
const DefaultScanLimit = 50

// Strategy locates a header row satisfying a requirement.
type Strategy interface {
	Name() LocateMethod
	Locate(wb Workbook, req Requirement) (Location, bool)
}

// ExactHeaderStrategy matches header cells against the alias table.
type ExactHeaderStrategy struct {
	ScanLimit int
}

func (ExactHeaderStrategy) Name() LocateMethod { return MethodExactHeader }

// Locate returns the first qualifying (sheet, row) in sheet order, then row
// order.
func (s ExactHeaderStrategy) Locate(wb Workbook, req Requirement) (Location, bool) {
	limit := s.ScanLimit
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	for _, sheet := range wb.Sheets {
		for r, row := range sheet.Head(limit) {
			cols := MapHeaderRow(row)
			if req.SatisfiedBy(cols) {
				return Location{Sheet: sheet, HeaderRow: r, Columns: cols, Method: MethodExactHeader}, true
			}
		}
	}
	return Location{}, false
}

// HeuristicStrategy guesses the name and service line columns of the first
// sheet from their content. It only knows how to produce AssignmentColumns.
type HeuristicStrategy struct {
	SampleLimit int
	Candidates  int
}

func (HeuristicStrategy) Name() LocateMethod { return MethodHeuristic }

type columnStats struct {
	index        int
	count        int
	nameScore    int
	serviceScore int
}

// Locate scores the columns with the most non-empty sampled cells and picks
// the (name, service line) pair with the highest combined score. Row 0 is
// treated as the header row.
func (s HeuristicStrategy) Locate(wb Workbook, req Requirement) (Location, bool) {
	if len(wb.Sheets) == 0 || !heuristicCovers(req) {
		return Location{}, false
	}
	sampleLimit := s.SampleLimit
	if sampleLimit <= 0 {
		sampleLimit = DefaultScanLimit
	}
	candidates := s.Candidates
	if candidates <= 0 {
		candidates = 4
	}

	sheet := wb.Sheets[0]
	var stats []columnStats
	for _, row := range sheet.Head(sampleLimit) {
		for idx, cell := range row {
			for len(stats) <= idx {
				stats = append(stats, columnStats{index: len(stats)})
			}
			if cell.IsBlank() {
				continue
			}
			stats[idx].count++
			value := cell.String()
			if LooksLikeName(value) {
				stats[idx].nameScore++
			}
			if LooksLikeServiceLine(value) {
				stats[idx].serviceScore++
			}
		}
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].count > stats[j].count })
	if len(stats) > candidates {
		stats = stats[:candidates]
	}

	bestScore, nameIdx, serviceIdx := -1, -1, -1
	for _, a := range stats {
		for _, b := range stats {
			if a.index == b.index {
				continue
			}
			if score := a.nameScore + b.serviceScore; score > bestScore {
				bestScore, nameIdx, serviceIdx = score, a.index, b.index
			}
		}
	}
	if bestScore <= 0 {
		return Location{}, false
	}
	return Location{
		Sheet:     sheet,
		HeaderRow: 0,
		Columns:   ColumnMap{ColResourceName: nameIdx, ColServiceLine: serviceIdx},
		Method:    MethodHeuristic,
	}, true
}

func heuristicCovers(req Requirement) bool {
	guessed := ColumnMap{ColResourceName: 0, ColServiceLine: 1}
	return req.SatisfiedBy(guessed)
}

var serviceLineKeywords = []string{"aml", "audit", "testing", "compliance", "regulatory", "risk", "internal", "non-aml", "non aml"}

// LooksLikeName: at least 3 characters, and either a comma or 2-4 words.
func LooksLikeName(value string) bool {
	text := strings.TrimSpace(value)
	if len([]rune(text)) < 3 {
		return false
	}
	if strings.Contains(text, ",") {
		return true
	}
	words := len(strings.Fields(text))
	return words >= 2 && words <= 4
}

// LooksLikeServiceLine reports a keyword substring match.
func LooksLikeServiceLine(value string) bool {
	text := strings.ToLower(value)
	for _, word := range serviceLineKeywords {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolve runs the strategies in order and returns the first location found,
// or a *HeaderNotFoundError.
func Resolve(wb Workbook, kind SheetKind, req Requirement, strategies ...Strategy) (Location, error) {
	for _, strategy := range strategies {
		if loc, ok := strategy.Locate(wb, req); ok {
			return loc, nil
		}
	}
	return Location{}, &HeaderNotFoundError{Kind: kind, Required: req, Sheets: wb.SheetNames()}
}

// String describes the location with a one-based header row.
func (l Location) String() string {
	return fmt.Sprintf("sheet %q header row %d (%s)", l.SheetName(), l.HeaderRow+1, l.Method)
}
