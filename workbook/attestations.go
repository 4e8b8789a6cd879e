package workbook

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/timesheet-recon/recon"
)

// SheetAttestations is the only sheet of the completion attachment.
const SheetAttestations = "Attestations"

// AttestationsFilename names the completion attachment for a period.
func AttestationsFilename(start, end string) string {
	return fmt.Sprintf("Attestations_%s_%s.xlsx", start, end)
}

// WriteAttestations renders the latest attestation per employee as xlsx
// (Employee, Worker ID, Attested At, Notes).
func WriteAttestations(events []recon.AttestationEvent, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	b, err := newSheetBuilder(f)
	if err != nil {
		return nil, err
	}
	rows := [][]any{{"Employee", "Worker ID", "Attested At", "Notes"}}
	for _, e := range recon.LatestAttestations(events) {
		at := e.CreatedAt
		rows = append(rows, []any{e.EmployeeName, e.WorkerID, formatTimestamp(&at, loc), e.Details})
	}
	if err := b.rename("Sheet1", SheetAttestations, rows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
