package recon

import (
	"fmt"
	"strings"
)

// =============================================================================
// ASSIGNMENT - Expected service line per employee
// =============================================================================

// Assignment is one employee's expected service-line classification.
// Every loaded Assignment has a non-empty Name and ServiceLine.
type Assignment struct {
	ID              string // "A1", "A2", ... in load order
	Name            string
	ServiceLine     string
	ServiceLineNorm string
	WorkerIDRaw     string
	WorkerIDKey     string // normalized, may be empty
	NameNorm        string
	EmployeeKey     string
	AmbiguousName   bool // another assignment shares NameNorm
}

// AssignmentLoad is the result of loading an assignments workbook.
type AssignmentLoad struct {
	Assignments []Assignment
	Location    Location
}

// Method reports how the header row was found.
func (l AssignmentLoad) Method() LocateMethod { return l.Location.Method }

// AssignmentStrategies is the locator chain for assignment workbooks.
func AssignmentStrategies() []Strategy {
	return []Strategy{ExactHeaderStrategy{}, HeuristicStrategy{}}
}

// LoadAssignments locates the assignment header row (exact aliases first,
// then content heuristics on the first sheet) and loads the rows below it.
func LoadAssignments(wb Workbook) (AssignmentLoad, error) {
	loc, err := Resolve(wb, SheetAssignments, AssignmentColumns, AssignmentStrategies()...)
	if err != nil {
		return AssignmentLoad{}, err
	}
	assignments, err := AssignmentsFromLocation(loc)
	if err != nil {
		return AssignmentLoad{}, err
	}
	return AssignmentLoad{Assignments: assignments, Location: loc}, nil
}

// AssignmentsFromLocation builds assignments from the data rows of a located
// sheet and runs the ambiguity pass.
func AssignmentsFromLocation(loc Location) ([]Assignment, error) {
	var out []Assignment
	for _, row := range loc.DataRows() {
		nameCell := loc.Value(row, ColResourceName)
		serviceCell := loc.Value(row, ColServiceLine)
		if nameCell.IsBlank() && serviceCell.IsBlank() {
			continue
		}
		workerIDRaw := loc.Value(row, ColWorkerID)

		a := Assignment{
			ID:              fmt.Sprintf("A%d", len(out)+1),
			Name:            nameCell.Trimmed(),
			ServiceLine:     serviceCell.Trimmed(),
			ServiceLineNorm: NormalizeText(serviceCell.String()),
			WorkerIDRaw:     workerIDRaw.Trimmed(),
			WorkerIDKey:     NormalizeWorkerID(workerIDRaw.String()),
			NameNorm:        NormalizeName(nameCell.String()),
		}
		if a.Name == "" || a.ServiceLine == "" {
			continue
		}
		a.EmployeeKey = EmployeeKey(a.WorkerIDKey, a.NameNorm)
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, &NoRowsError{Kind: SheetAssignments, SheetName: loc.SheetName(), HeaderRow: loc.HeaderRow}
	}
	return MarkAmbiguous(out), nil
}

// MarkAmbiguous returns a copy of assignments with AmbiguousName set on every
// member of a NameNorm group larger than one. The input is not modified.
func MarkAmbiguous(assignments []Assignment) []Assignment {
	counts := make(map[string]int, len(assignments))
	for _, a := range assignments {
		if a.NameNorm != "" {
			counts[a.NameNorm]++
		}
	}
	out := make([]Assignment, len(assignments))
	for i, a := range assignments {
		a.AmbiguousName = counts[a.NameNorm] > 1
		out[i] = a
	}
	return out
}

// DisplayName is the name shown in reports, falling back to the id.
func (a Assignment) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return a.ID
}
