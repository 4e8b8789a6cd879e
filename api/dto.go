/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Packages and
  attestation events already have a JSON contract (recon.Package,
  recon.AttestationEvent) and are passed through unchanged; everything
  else is shaped here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers and domain code, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - recon/package.go: Package JSON contract
*/
package api

import (
	"time"

	"github.com/warp/timesheet-recon/recon"
)

// =============================================================================
// ADMIN SESSION
// =============================================================================

// LocationDTO describes where a loader found its header row.
type LocationDTO struct {
	Sheet     string `json:"sheet"`
	HeaderRow int    `json:"headerRow"` // 1-based, as shown in spreadsheet apps
	Method    string `json:"method"`
}

// LoadResponse is returned by the upload endpoints.
type LoadResponse struct {
	Message  string      `json:"message"`
	Rows     int         `json:"rows"`
	Undated  int         `json:"undated,omitempty"`
	Location LocationDTO `json:"location"`
	Ready    bool        `json:"ready"`
}

// PeriodRequest sets the reconciliation window. Dates are YYYY-MM-DD.
type PeriodRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// PeriodDTO is a half-open date range.
type PeriodDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TotalsDTO mirrors recon.Totals with hours as a string.
type TotalsDTO struct {
	Employees            int    `json:"employees"`
	EntriesInRange       int    `json:"entriesInRange"`
	IncorrectEntries     int    `json:"incorrectEntries"`
	MissingMemos         int    `json:"missingMemos"`
	EmployeesIncorrect   int    `json:"employeesIncorrect"`
	EmployeesMissingMemo int    `json:"employeesMissingMemo"`
	Unmatched            int    `json:"unmatched"`
	Ambiguous            int    `json:"ambiguous"`
	Hours                string `json:"hours"`
}

// RankingDTO is one line of the incorrect or missing memo ranking.
type RankingDTO struct {
	AssignmentID string `json:"assignmentId"`
	Name         string `json:"name"`
	WorkerID     string `json:"workerId"`
	ServiceLine  string `json:"serviceLine"`
	Count        int    `json:"count"`
}

// UnmatchedDTO is an in-range entry without an assignment.
type UnmatchedDTO struct {
	Row        int    `json:"row"`
	Date       string `json:"date"`
	WorkerName string `json:"workerName"`
	WorkerID   string `json:"workerId"`
	TaskDesc   string `json:"taskDesc"`
	Project    string `json:"project"`
	Hours      string `json:"hours"`
	Memo       string `json:"memo"`
}

// AmbiguousDTO is an entry whose match was unreliable.
type AmbiguousDTO struct {
	Row          int    `json:"row"`
	Date         string `json:"date"`
	WorkerName   string `json:"workerName"`
	WorkerID     string `json:"workerId"`
	AssignmentID string `json:"assignmentId"`
	Reason       string `json:"reason"`
}

// SummaryResponse is the admin dashboard.
type SummaryResponse struct {
	Version            int            `json:"version"`
	Ready              bool           `json:"ready"`
	Period             PeriodDTO      `json:"period"`
	Assignments        int            `json:"assignments"`
	Entries            int            `json:"entries"`
	AssignmentLocation *LocationDTO   `json:"assignmentLocation,omitempty"`
	EntryLocation      *LocationDTO   `json:"entryLocation,omitempty"`
	Totals             TotalsDTO      `json:"totals"`
	IncorrectRanking   []RankingDTO   `json:"incorrectRanking"`
	MissingMemoRanking []RankingDTO   `json:"missingMemoRanking"`
	Unmatched          []UnmatchedDTO `json:"unmatched"`
	Ambiguous          []AmbiguousDTO `json:"ambiguous"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// =============================================================================
// PACKAGES & ATTESTATIONS
// =============================================================================

// PublishResponse is returned after a package is stored.
type PublishResponse struct {
	PackageID string `json:"packageId"`
	Employees int    `json:"employees"`
}

// DeleteResponse is returned by the delete endpoints.
type DeleteResponse struct {
	Deleted   bool   `json:"deleted"`
	Count     int    `json:"count"`
	PackageID string `json:"packageId,omitempty"`
}

// AttestRequest is the employee attestation form.
type AttestRequest struct {
	Confirmed bool   `json:"confirmed"`
	Notes     string `json:"notes"`
}

// OKResponse acknowledges a write.
type OKResponse struct {
	OK    bool                    `json:"ok"`
	Event *recon.AttestationEvent `json:"event,omitempty"`
}

// EmployeeStatusDTO is an assignment annotated with attestation activity.
type EmployeeStatusDTO struct {
	AssignmentID     string     `json:"assignmentId"`
	Name             string     `json:"name"`
	WorkerID         string     `json:"workerId"`
	ServiceLine      string     `json:"serviceLine"`
	EmployeeKey      string     `json:"employeeKey"`
	Ambiguous        bool       `json:"ambiguous"`
	State            string     `json:"state"`
	LastViewed       *time.Time `json:"lastViewed"`
	LastAttested     *time.Time `json:"lastAttested"`
	AttestationNotes string     `json:"attestationNotes"`
}

// AdminAttestationsResponse is the attestation dashboard.
type AdminAttestationsResponse struct {
	PackageID string              `json:"packageId"`
	Counts    map[string]int      `json:"counts"`
	Employees []EmployeeStatusDTO `json:"employees"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toLocationDTO(loc recon.Location) LocationDTO {
	return LocationDTO{Sheet: loc.SheetName(), HeaderRow: loc.HeaderRow + 1, Method: string(loc.Method)}
}

func toTotalsDTO(t recon.Totals) TotalsDTO {
	return TotalsDTO{
		Employees:            t.Employees,
		EntriesInRange:       t.EntriesInRange,
		IncorrectEntries:     t.IncorrectEntries,
		MissingMemos:         t.MissingMemos,
		EmployeesIncorrect:   t.EmployeesIncorrect,
		EmployeesMissingMemo: t.EmployeesMissingMemo,
		Unmatched:            t.Unmatched,
		Ambiguous:            t.Ambiguous,
		Hours:                t.Hours.String(),
	}
}

func toRankingDTOs(summaries []recon.Summary, count func(recon.Summary) int) []RankingDTO {
	out := make([]RankingDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, RankingDTO{
			AssignmentID: s.Assignment.ID,
			Name:         s.Assignment.Name,
			WorkerID:     s.Assignment.WorkerIDRaw,
			ServiceLine:  s.Assignment.ServiceLine,
			Count:        count(s),
		})
	}
	return out
}

func toEmployeeStatusDTO(st recon.EmployeeStatus) EmployeeStatusDTO {
	a := st.Assignment
	return EmployeeStatusDTO{
		AssignmentID:     a.ID,
		Name:             a.Name,
		WorkerID:         a.WorkerIDRaw,
		ServiceLine:      a.ServiceLine,
		EmployeeKey:      a.EmployeeKey,
		Ambiguous:        a.AmbiguousName,
		State:            string(st.State),
		LastViewed:       st.LastViewed,
		LastAttested:     st.LastAttested,
		AttestationNotes: st.AttestationNotes,
	}
}
