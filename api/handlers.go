/*
handlers.go - HTTP API handlers for reconciliation and attestation

PURPOSE:
  Exposes the admin reconciliation session and the attestation workflow
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates to recon (session) and attest (packages, events).

ENDPOINTS:
  Packages:
    POST   /api/packages                  Publish package JSON
    DELETE /api/packages                  Delete all packages
    GET    /api/packages/latest           Latest package JSON
    DELETE /api/packages/latest           Delete latest package

  Attestations:
    POST   /api/attestations              Record Viewed/Attested event
    GET    /api/attestations/status       Events and status rows (?packageId=)

  Employee:
    GET    /api/employee                  Roster of the latest package
    GET    /api/employee/{id}             Employee view (records Viewed)
    POST   /api/employee/{id}/attest      Attest with confirmation and notes

  Admin (X-Admin-Passcode):
    POST   /api/admin/assignments         Upload assignments workbook
    POST   /api/admin/time-detail         Upload time detail workbook
    PUT    /api/admin/period              Set reconciliation period
    GET    /api/admin/summary             Totals, rankings, unmatched
    POST   /api/admin/publish             Publish the current reconciliation
    GET    /api/admin/report              Download xlsx report
    GET    /api/admin/attestations        Annotated attestation status
    POST   /api/admin/reset               Drop loaded workbooks
    GET    /api/admin/scenarios           Demo scenarios (scenarios.go)
    POST   /api/admin/scenarios/load      Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON {error, details} with status:
  - 400: Load failures, invalid period/package/event, bad input
  - 401: Missing or wrong admin passcode
  - 404: No package published, unknown employee
  - 409: Reconciliation not ready (missing workbook)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/timesheet-recon/attest"
	"github.com/warp/timesheet-recon/logging"
	"github.com/warp/timesheet-recon/recon"
	"github.com/warp/timesheet-recon/workbook"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// DefaultMaxUploadBytes bounds uploads and JSON bodies.
const DefaultMaxUploadBytes int64 = 20 << 20

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Session *recon.Session
	Attest  *attest.Service

	// MaxUploadBytes bounds request bodies.
	MaxUploadBytes int64

	// Location renders report timestamps. UTC when nil.
	Location *time.Location
}

// NewHandler creates a handler over a session and an attestation service.
func NewHandler(session *recon.Session, svc *attest.Service) *Handler {
	return &Handler{
		Session:        session,
		Attest:         svc,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// =============================================================================
// PACKAGE HANDLERS
// =============================================================================

// PublishPackage stores a package JSON, replacing any previous package.
// POST /api/packages
func (h *Handler) PublishPackage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	pkg, err := h.Attest.Publish(r.Context(), body)
	if err != nil {
		h.fail(w, r, "Failed to publish package", err)
		return
	}
	writeJSON(w, http.StatusOK, PublishResponse{PackageID: pkg.PackageID, Employees: pkg.EmployeeCount()})
}

// LatestPackage returns the stored package JSON verbatim.
// GET /api/packages/latest
func (h *Handler) LatestPackage(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Attest.Latest(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load package", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Payload)
}

// DeletePackages removes every package.
// DELETE /api/packages
func (h *Handler) DeletePackages(w http.ResponseWriter, r *http.Request) {
	n, err := h.Attest.DeleteAll(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to delete packages", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: true, Count: n})
}

// DeleteLatestPackage removes the latest package.
// DELETE /api/packages/latest
func (h *Handler) DeleteLatestPackage(w http.ResponseWriter, r *http.Request) {
	id, err := h.Attest.DeleteLatest(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to delete package", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: true, Count: 1, PackageID: id})
}

// =============================================================================
// ATTESTATION HANDLERS
// =============================================================================

// RecordAttestation appends a Viewed or Attested event.
// POST /api/attestations
func (h *Handler) RecordAttestation(w http.ResponseWriter, r *http.Request) {
	var event recon.AttestationEvent
	if err := h.decode(w, r, &event); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	// Ids and timestamps are assigned by the server.
	event.ID = ""
	event.CreatedAt = time.Time{}

	saved, err := h.Attest.Record(r.Context(), event)
	if err != nil {
		h.fail(w, r, "Failed to save attestation", err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true, Event: &saved})
}

// AttestationStatus returns events and status rows of a package.
// GET /api/attestations/status?packageId=
func (h *Handler) AttestationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Attest.Status(r.Context(), r.URL.Query().Get("packageId"))
	if err != nil {
		h.fail(w, r, "Failed to load attestation status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// EmployeeRoster lists the employees of the latest package.
// GET /api/employee
func (h *Handler) EmployeeRoster(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.Attest.LatestPackage(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load package", err)
		return
	}
	writeJSON(w, http.StatusOK, pkg.Roster())
}

// EmployeeView returns one employee's findings and records a Viewed event.
// GET /api/employee/{id}
func (h *Handler) EmployeeView(w http.ResponseWriter, r *http.Request) {
	view, err := h.Attest.ViewEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to load employee", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// EmployeeAttest records the employee's attestation.
// POST /api/employee/{id}/attest
func (h *Handler) EmployeeAttest(w http.ResponseWriter, r *http.Request) {
	var req AttestRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	event, err := h.Attest.Attest(r.Context(), chi.URLParam(r, "id"), req.Confirmed, req.Notes)
	if err != nil {
		h.fail(w, r, "Failed to save attestation", err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true, Event: &event})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// UploadAssignments loads the assignments workbook into the session.
// POST /api/admin/assignments (multipart "file")
func (h *Handler) UploadAssignments(w http.ResponseWriter, r *http.Request) {
	wb, ok := h.readWorkbook(w, r)
	if !ok {
		return
	}
	load, err := h.Session.LoadAssignments(wb)
	if err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Msg("assignments rejected")
		writeError(w, http.StatusBadRequest, assignmentLoadMessage(err), err)
		return
	}
	message := fmt.Sprintf("Loaded %d assignments", len(load.Assignments))
	if load.Method() == recon.MethodHeuristic {
		message = "Heuristic match used. " + message
	}
	logging.FromContext(r.Context()).Info().
		Int("assignments", len(load.Assignments)).
		Str("sheet", load.Location.SheetName()).
		Str("method", string(load.Method())).
		Msg("assignments loaded")
	writeJSON(w, http.StatusOK, LoadResponse{
		Message:  message,
		Rows:     len(load.Assignments),
		Location: toLocationDTO(load.Location),
		Ready:    h.Session.Snapshot().Ready(),
	})
}

// UploadTimeDetail loads the time detail workbook into the session.
// POST /api/admin/time-detail (multipart "file")
func (h *Handler) UploadTimeDetail(w http.ResponseWriter, r *http.Request) {
	wb, ok := h.readWorkbook(w, r)
	if !ok {
		return
	}
	load, err := h.Session.LoadTimeEntries(wb)
	if err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Msg("time detail rejected")
		writeError(w, http.StatusBadRequest, timeDetailLoadMessage(err), err)
		return
	}
	logging.FromContext(r.Context()).Info().
		Int("entries", len(load.Entries)).
		Int("undated", load.Undated()).
		Str("sheet", load.Location.SheetName()).
		Msg("time detail loaded")
	writeJSON(w, http.StatusOK, LoadResponse{
		Message:  fmt.Sprintf("Loaded %d time rows", len(load.Entries)),
		Rows:     len(load.Entries),
		Undated:  load.Undated(),
		Location: toLocationDTO(load.Location),
		Ready:    h.Session.Snapshot().Ready(),
	})
}

// SetPeriod changes the reconciliation window.
// PUT /api/admin/period
func (h *Handler) SetPeriod(w http.ResponseWriter, r *http.Request) {
	var req PeriodRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	p, err := recon.ParsePeriod(req.Start, req.End)
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	snap := h.Session.SetPeriod(p)
	writeJSON(w, http.StatusOK, summarize(snap))
}

// Summary returns the admin dashboard for the current session.
// GET /api/admin/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, summarize(h.Session.Snapshot()))
}

// PublishCurrent builds and publishes a package from the session.
// POST /api/admin/publish
func (h *Handler) PublishCurrent(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.Attest.PublishSnapshot(r.Context(), h.Session.Snapshot())
	if err != nil {
		h.fail(w, r, "Publish failed", err)
		return
	}
	writeJSON(w, http.StatusOK, PublishResponse{PackageID: pkg.PackageID, Employees: pkg.EmployeeCount()})
}

// Report streams the admin xlsx report. When a package is published, its
// attestation activity is included.
// GET /api/admin/report
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	snap := h.Session.Snapshot()
	if !snap.Ready() {
		h.fail(w, r, "Report not ready", recon.ErrNotReady)
		return
	}
	rep := workbook.Report{Snapshot: snap, Location: h.Location}
	status, err := h.Attest.Status(r.Context(), "")
	switch {
	case err == nil:
		rep.Events = status.Events
		rep.Statuses = recon.AnnotateStatus(snap.Assignments, status.Rows)
	case !recon.IsNotFound(err):
		h.fail(w, r, "Failed to load attestation status", err)
		return
	}

	var buf bytes.Buffer
	if err := workbook.WriteReport(&buf, rep); err != nil {
		h.fail(w, r, "Failed to build report", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, workbook.ReportFilename(snap.Period)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// AdminAttestations annotates the session's assignments with the latest
// package's attestation activity.
// GET /api/admin/attestations
func (h *Handler) AdminAttestations(w http.ResponseWriter, r *http.Request) {
	status, err := h.Attest.Status(r.Context(), "")
	if err != nil {
		h.fail(w, r, "Failed to load attestation status", err)
		return
	}
	statuses := recon.AnnotateStatus(h.Session.Snapshot().Assignments, status.Rows)
	resp := AdminAttestationsResponse{
		PackageID: status.PackageID,
		Counts:    make(map[string]int),
		Employees: make([]EmployeeStatusDTO, 0, len(statuses)),
	}
	for state, n := range recon.StatusCounts(statuses) {
		resp.Counts[string(state)] = n
	}
	for _, st := range statuses {
		resp.Employees = append(resp.Employees, toEmployeeStatusDTO(st))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetSession drops the loaded workbooks.
// POST /api/admin/reset
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, summarize(h.Session.Reset()))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) readWorkbook(w http.ResponseWriter, r *http.Request) (recon.Workbook, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err)
		return recon.Workbook{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file", err)
		return recon.Workbook{}, false
	}
	defer file.Close()

	wb, err := workbook.Decode(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unable to read workbook", err)
		return recon.Workbook{}, false
	}
	return wb, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.MaxUploadBytes))
	return dec.Decode(v)
}

func assignmentLoadMessage(err error) string {
	switch {
	case errors.Is(err, recon.ErrHeaderNotFound):
		return "Unable to detect Assignment headers or columns."
	case errors.Is(err, recon.ErrNoRowsFound):
		return "No assignment rows found."
	}
	return "Failed to load"
}

func timeDetailLoadMessage(err error) string {
	switch {
	case errors.Is(err, recon.ErrHeaderNotFound):
		return "Unable to locate the Time Detail header row."
	case errors.Is(err, recon.ErrNoRowsFound):
		return "No time detail rows found."
	}
	return "Failed to load"
}

func summarize(snap *recon.Snapshot) SummaryResponse {
	resp := SummaryResponse{
		Version:            snap.Version,
		Ready:              snap.Ready(),
		Period:             PeriodDTO{Start: snap.Period.StartISO(), End: snap.Period.EndISO()},
		Assignments:        len(snap.Assignments),
		Entries:            len(snap.Entries),
		Totals:             toTotalsDTO(snap.Totals()),
		IncorrectRanking:   []RankingDTO{},
		MissingMemoRanking: []RankingDTO{},
		Unmatched:          []UnmatchedDTO{},
		Ambiguous:          []AmbiguousDTO{},
		UpdatedAt:          snap.UpdatedAt,
	}
	if snap.Assignments != nil {
		loc := toLocationDTO(snap.AssignmentLocation)
		resp.AssignmentLocation = &loc
	}
	if snap.Entries != nil {
		loc := toLocationDTO(snap.EntryLocation)
		resp.EntryLocation = &loc
	}
	if !snap.Ready() {
		return resp
	}
	res := snap.Result
	resp.IncorrectRanking = toRankingDTOs(res.IncorrectRanking(), func(s recon.Summary) int { return len(s.IncorrectEntries) })
	resp.MissingMemoRanking = toRankingDTOs(res.MissingMemoRanking(), func(s recon.Summary) int { return len(s.MissingMemos) })
	for _, e := range res.Unmatched {
		resp.Unmatched = append(resp.Unmatched, UnmatchedDTO{
			Row:        e.RowIndex,
			Date:       recon.FormatISODate(e.Date),
			WorkerName: e.WorkerName,
			WorkerID:   e.WorkerIDRaw,
			TaskDesc:   e.TaskDesc,
			Project:    e.Project,
			Hours:      e.Hours.Trimmed(),
			Memo:       e.Memo,
		})
	}
	for _, a := range res.Ambiguous {
		resp.Ambiguous = append(resp.Ambiguous, AmbiguousDTO{
			Row:          a.Entry.RowIndex,
			Date:         recon.FormatISODate(a.Entry.Date),
			WorkerName:   a.Entry.WorkerName,
			WorkerID:     a.Entry.WorkerIDRaw,
			AssignmentID: a.AssignmentID,
			Reason:       a.Reason,
		})
	}
	return resp
}

// fail maps domain errors to HTTP status codes and logs server errors.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	var validation *recon.EventValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message, err)
	case recon.IsNotFound(err):
		writeError(w, http.StatusNotFound, notFoundMessage(err), err)
	case errors.Is(err, recon.ErrNotReady):
		writeError(w, http.StatusConflict, "Not Ready", err)
	case errors.Is(err, recon.ErrInvalidPackage):
		writeError(w, http.StatusBadRequest, "Missing package fields", err)
	case recon.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		logging.FromContext(r.Context()).Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func notFoundMessage(err error) string {
	if errors.Is(err, recon.ErrEmployeeNotFound) {
		return "Employee not found"
	}
	return "No package published yet"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
