/*
scenarios.go - Demo scenarios for the admin session

PURPOSE:

	Provides pre-built assignment and time detail workbooks that load into
	the admin session without uploading files. Each scenario exercises a
	specific part of the reconciliation.

AVAILABLE SCENARIOS:

	clean-month:      Every entry matches its service line with a memo
	mixed-findings:   Incorrect entries, missing memos, unmatched and
	                  out-of-range rows
	ambiguous-names:  Shared names without worker ids, a duplicated worker id
	messy-headers:    Title rows above the header, alias spellings, and an
	                  assignments sheet without recognizable headers

HOW SCENARIOS WORK:
 1. Build the two workbooks in memory
 2. Load assignments, then time detail, into the session
 3. Set the period to February 2026

USAGE VIA API:

	GET  /api/admin/scenarios
	POST /api/admin/scenarios/load
	{"scenarioId": "mixed-findings"}

NOTE:

	Loading a scenario replaces the session's workbooks. Published packages
	and attestation events are not touched.

SEE ALSO:
  - handlers.go: admin upload handlers
  - recon/session.go: Session
*/
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/warp/timesheet-recon/recon"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}

// Scenario is a pair of workbooks and the period they are reconciled for.
type Scenario struct {
	ScenarioDTO
	Assignments recon.Workbook
	TimeDetail  recon.Workbook
	Period      recon.Period
}

var scenarioPeriod = recon.Period{
	Start: recon.NewDay(2026, time.February, 1),
	End:   recon.NewDay(2026, time.March, 1),
}

// Scenarios lists the built-in scenarios in display order.
func Scenarios() []Scenario {
	return []Scenario{
		cleanMonthScenario(),
		mixedFindingsScenario(),
		ambiguousNamesScenario(),
		messyHeadersScenario(),
	}
}

// FindScenario looks up a scenario by id.
func FindScenario(id string) (Scenario, bool) {
	for _, s := range Scenarios() {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}

// Load replaces the session's workbooks and period with the scenario's.
func (s Scenario) Load(session *recon.Session) (*recon.Snapshot, error) {
	if _, err := session.LoadAssignments(s.Assignments); err != nil {
		return nil, fmt.Errorf("scenario %s assignments: %w", s.ID, err)
	}
	if _, err := session.LoadTimeEntries(s.TimeDetail); err != nil {
		return nil, fmt.Errorf("scenario %s time detail: %w", s.ID, err)
	}
	return session.SetPeriod(s.Period), nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available scenarios.
// GET /api/admin/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios := Scenarios()
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// LoadScenario loads a scenario into the session.
// POST /api/admin/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	scenario, ok := FindScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}
	snap, err := scenario.Load(h.Session)
	if err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(snap))
}

// =============================================================================
// WORKBOOK BUILDERS
// =============================================================================

var timeDetailHeader = []string{"Worker ID", "Worker", "Date", "Task Desc", "Project", "Hours", "Memo"}

type entryRow struct {
	workerID, worker string
	day              int // February 2026
	task, project    string
	hours            float64
	memo             string
}

func timeDetailSheet(name string, rows []entryRow) recon.Sheet {
	sheet := recon.Sheet{Name: name, Rows: [][]recon.Cell{recon.TextRow(timeDetailHeader...)}}
	for _, e := range rows {
		sheet.Rows = append(sheet.Rows, []recon.Cell{
			recon.Text(e.workerID),
			recon.Text(e.worker),
			recon.Date(recon.NewDay(2026, time.February, e.day)),
			recon.Text(e.task),
			recon.Text(e.project),
			recon.Number(e.hours),
			recon.Text(e.memo),
		})
	}
	return sheet
}

func assignmentSheet(name string, header []string, rows ...[]string) recon.Sheet {
	sheet := recon.Sheet{Name: name}
	if header != nil {
		sheet.Rows = append(sheet.Rows, recon.TextRow(header...))
	}
	for _, row := range rows {
		sheet.Rows = append(sheet.Rows, recon.TextRow(row...))
	}
	return sheet
}

func cleanMonthScenario() Scenario {
	return Scenario{
		ScenarioDTO: ScenarioDTO{
			ID:          "clean-month",
			Name:        "Clean Month",
			Description: "Every entry is booked to the expected service line with a memo.",
		},
		Assignments: recon.Workbook{Sheets: []recon.Sheet{
			assignmentSheet("Assignments", []string{"Resource Name", "Worker ID", "Service Line"},
				[]string{"Doe, Jane", "0007", "AML Testing"},
				[]string{"Alvarez, Sam", "0012", "Internal Audit"},
			),
		}},
		TimeDetail: recon.Workbook{Sheets: []recon.Sheet{
			timeDetailSheet("Time Detail", []entryRow{
				{"7", "Jane Doe", 3, "AML Testing", "Bank A", 8, "Sample testing"},
				{"7", "Jane Doe", 4, "aml  testing", "Bank A", 7.5, "Walkthroughs"},
				{"12", "Sam Alvarez", 10, "Internal Audit", "Bank B", 6, "Fieldwork"},
			}),
		}},
		Period: scenarioPeriod,
	}
}

func mixedFindingsScenario() Scenario {
	return Scenario{
		ScenarioDTO: ScenarioDTO{
			ID:          "mixed-findings",
			Name:        "Mixed Findings",
			Description: "Incorrect service lines, missing memos, an unknown worker and rows outside the period.",
		},
		Assignments: recon.Workbook{Sheets: []recon.Sheet{
			assignmentSheet("Assignments", []string{"Resource Name", "Worker ID", "Service Line"},
				[]string{"Doe, Jane", "0007", "AML Testing"},
				[]string{"Roe, John", "0021", "Regulatory Compliance"},
				[]string{"Park, Min", "", "Internal Audit"},
			),
		}},
		TimeDetail: recon.Workbook{Sheets: []recon.Sheet{
			timeDetailSheet("Time Detail", []entryRow{
				{"7", "Jane Doe", 2, "AML Testing", "Bank A", 8, "Sample testing"},
				{"7", "Jane Doe", 3, "Internal Audit", "Bank A", 4, ""},
				{"21", "John Roe", 5, "Regulatory Compliance", "Bank C", 8, ""},
				{"21", "John Roe", 6, "", "Bank C", 2, "Admin"},
				{"", "Min Park", 9, "Risk Advisory", "Bank D", 5, "Kickoff"},
				{"99", "Pat Unknown", 11, "AML Testing", "Bank A", 3, "Review"},
				{"7", "Jane Doe", 1, "Internal Audit", "Bank A", 8, "Period start, excluded"},
			}),
		}},
		Period: scenarioPeriod,
	}
}

func ambiguousNamesScenario() Scenario {
	return Scenario{
		ScenarioDTO: ScenarioDTO{
			ID:          "ambiguous-names",
			Name:        "Ambiguous Names",
			Description: "Two employees share a name without worker ids and two rows share a worker id.",
		},
		Assignments: recon.Workbook{Sheets: []recon.Sheet{
			assignmentSheet("Assignments", []string{"Resource Name", "Worker ID", "Service Line"},
				[]string{"Kim, Alex", "", "AML Testing"},
				[]string{"Alex Kim", "", "Internal Audit"},
				[]string{"Lee, Dana", "0040", "Regulatory Compliance"},
				[]string{"Lee, Dana R.", "40", "Risk Advisory"},
			),
		}},
		TimeDetail: recon.Workbook{Sheets: []recon.Sheet{
			timeDetailSheet("Time Detail", []entryRow{
				{"", "Alex Kim", 4, "AML Testing", "Bank A", 8, "Testing"},
				{"40", "Dana Lee", 5, "Regulatory Compliance", "Bank B", 6, "Exam prep"},
			}),
		}},
		Period: scenarioPeriod,
	}
}

func messyHeadersScenario() Scenario {
	detail := timeDetailSheet("Export", []entryRow{
		{"0007", "Doe, Jane", 12, "AML Testing", "Bank A", 8, "Testing"},
		{"0007", "Doe, Jane", 13, "Non-AML Testing", "Bank A", 3, ""},
	})
	// Title rows above the header, header spelled with aliases.
	detail.Rows[0] = recon.TextRow("Resource ID", "Worker Name", "Work Date", "Tasc Desc", "Project Name", "Hrs", "Notes")
	detail.Rows = append([][]recon.Cell{
		recon.TextRow("Time Detail Report"),
		recon.TextRow("Generated 3/1/2026"),
		nil,
	}, detail.Rows...)

	return Scenario{
		ScenarioDTO: ScenarioDTO{
			ID:          "messy-headers",
			Name:        "Messy Headers",
			Description: "Title rows, alias header spellings, and an assignments sheet located by content.",
		},
		Assignments: recon.Workbook{Sheets: []recon.Sheet{
			assignmentSheet("Staffing", []string{"Staff", "Line"},
				[]string{"Jane Doe", "AML Testing"},
				[]string{"Sam Alvarez", "Internal Audit"},
				[]string{"Min Park", "Regulatory Compliance"},
			),
		}},
		TimeDetail: recon.Workbook{Sheets: []recon.Sheet{
			{Name: "Cover", Rows: [][]recon.Cell{recon.TextRow("Confidential")}},
			detail,
		}},
		Period: scenarioPeriod,
	}
}
