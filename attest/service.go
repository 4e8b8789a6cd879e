/*
Package attest runs the publish and attestation workflow on top of the
package store and the attestation log.

FLOW:
  1. Admin publishes a package (replaces any previous package)
  2. Employee opens their view        -> Viewed event
  3. Employee confirms and adds notes -> Attested event
  4. When every employee in the package has attested, the attestation
     spreadsheet is mailed once. The package is marked notified before
     sending, and the mark is released unless the notifier reports the
     mail as sent.

Notification failures are logged and never fail the attestation write.
*/
package attest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/timesheet-recon/notify"
	"github.com/warp/timesheet-recon/recon"
	"github.com/warp/timesheet-recon/workbook"
)

// Options configure a Service. Zero values are usable.
type Options struct {
	Notifier   notify.Notifier // defaults to a LogNotifier
	Recipients []string        // completion mail recipients
	Location   *time.Location  // zone of timestamps in mails and attachments; UTC when nil
	Now        func() time.Time
	NewID      func() string
	Logger     *zerolog.Logger
}

// Service is safe for concurrent use when its stores are.
type Service struct {
	packages   recon.PackageStore
	events     recon.AttestationLog
	notifier   notify.Notifier
	recipients []string
	loc        *time.Location
	now        func() time.Time
	newID      func() string
	logger     zerolog.Logger
}

// NewService wires the workflow to its stores.
func NewService(packages recon.PackageStore, events recon.AttestationLog, opts Options) *Service {
	s := &Service{
		packages:   packages,
		events:     events,
		notifier:   opts.Notifier,
		recipients: opts.Recipients,
		loc:        opts.Location,
		now:        opts.Now,
		newID:      opts.NewID,
		logger:     zerolog.Nop(),
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	if s.notifier == nil {
		s.notifier = notify.LogNotifier{Logger: s.logger}
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// =============================================================================
// PACKAGES
// =============================================================================

// Publish validates a package payload and makes it the only stored package.
// The payload is stored verbatim.
func (s *Service) Publish(ctx context.Context, payload []byte) (*recon.Package, error) {
	pkg, err := recon.DecodePackage(payload)
	if err != nil {
		return nil, err
	}
	rec := recon.PackageRecord{
		PackageID:     pkg.PackageID,
		PeriodStart:   pkg.Period.Start,
		PeriodEnd:     pkg.Period.End,
		GeneratedAt:   pkg.GeneratedAt,
		EmployeeCount: pkg.EmployeeCount(),
		Payload:       payload,
		CreatedAt:     s.now(),
	}
	if err := s.packages.ReplacePackage(ctx, rec); err != nil {
		return nil, fmt.Errorf("store package %s: %w", pkg.PackageID, err)
	}
	s.logger.Info().
		Str("package_id", pkg.PackageID).
		Str("period", pkg.Period.Start+" to "+pkg.Period.End).
		Int("employees", rec.EmployeeCount).
		Msg("package published")
	return pkg, nil
}

// PublishSnapshot builds a package from a ready snapshot under a fresh id
// and publishes it.
func (s *Service) PublishSnapshot(ctx context.Context, snap *recon.Snapshot) (*recon.Package, error) {
	pkg, err := recon.BuildPackage(snap, s.newID(), s.now())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("encode package: %w", err)
	}
	return s.Publish(ctx, payload)
}

// Latest returns the stored record of the latest package.
func (s *Service) Latest(ctx context.Context) (*recon.PackageRecord, error) {
	return s.packages.LatestPackage(ctx)
}

// LatestPackage decodes the latest package.
func (s *Service) LatestPackage(ctx context.Context) (*recon.Package, error) {
	rec, err := s.packages.LatestPackage(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Package()
}

// DeleteLatest removes the latest package and returns its id. Its events
// are kept.
func (s *Service) DeleteLatest(ctx context.Context) (string, error) {
	id, err := s.packages.DeleteLatestPackage(ctx)
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("package_id", id).Msg("package deleted")
	return id, nil
}

// DeleteAll removes every package and returns how many were removed.
func (s *Service) DeleteAll(ctx context.Context) (int, error) {
	n, err := s.packages.DeleteAllPackages(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int("deleted", n).Msg("packages deleted")
	return n, nil
}

// =============================================================================
// EVENTS
// =============================================================================

// Record validates and appends an attestation event. Attested events may
// trigger the completion notification.
func (s *Service) Record(ctx context.Context, event recon.AttestationEvent) (recon.AttestationEvent, error) {
	event = event.Normalize()
	if err := event.Validate(); err != nil {
		return recon.AttestationEvent{}, err
	}
	if event.ID == "" {
		event.ID = s.newID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	if err := s.events.Append(ctx, event); err != nil {
		return recon.AttestationEvent{}, fmt.Errorf("append attestation event: %w", err)
	}
	s.logger.Info().
		Str("package_id", event.PackageID).
		Str("employee_key", event.EmployeeKey).
		Str("event", string(event.EventType)).
		Msg("attestation event recorded")

	if event.EventType == recon.EventAttested {
		if err := s.maybeNotifyCompletion(ctx, event.PackageID); err != nil {
			s.logger.Error().Err(err).Str("package_id", event.PackageID).Msg("completion notification failed")
		}
	}
	return event, nil
}

// ViewEmployee returns the employee view of the latest package and records
// a Viewed event for it.
func (s *Service) ViewEmployee(ctx context.Context, assignmentID string) (recon.EmployeeView, error) {
	pkg, err := s.LatestPackage(ctx)
	if err != nil {
		return recon.EmployeeView{}, err
	}
	view, ok := pkg.EmployeeView(assignmentID)
	if !ok {
		return recon.EmployeeView{}, fmt.Errorf("%w: %s", recon.ErrEmployeeNotFound, assignmentID)
	}
	_, err = s.Record(ctx, recon.AttestationEvent{
		PackageID:    pkg.PackageID,
		EmployeeKey:  view.Assignment.EmployeeKey,
		EmployeeName: view.Assignment.Name,
		WorkerID:     view.Assignment.WorkerIDRaw,
		EventType:    recon.EventViewed,
		Details:      pkg.ViewedDetails(),
	})
	if err != nil {
		return recon.EmployeeView{}, err
	}
	return view, nil
}

// Attest records an Attested event for an assignment of the latest
// package. The employee must confirm and leave notes.
func (s *Service) Attest(ctx context.Context, assignmentID string, confirmed bool, notes string) (recon.AttestationEvent, error) {
	notes = strings.TrimSpace(notes)
	if !confirmed {
		return recon.AttestationEvent{}, &recon.EventValidationError{Field: "confirmed", Message: "Please confirm the attestation"}
	}
	if notes == "" {
		return recon.AttestationEvent{}, &recon.EventValidationError{Field: "details", Message: "Please add notes before attesting"}
	}
	pkg, err := s.LatestPackage(ctx)
	if err != nil {
		return recon.AttestationEvent{}, err
	}
	a, ok := pkg.Assignment(assignmentID)
	if !ok {
		return recon.AttestationEvent{}, fmt.Errorf("%w: %s", recon.ErrEmployeeNotFound, assignmentID)
	}
	return s.Record(ctx, recon.AttestationEvent{
		PackageID:    pkg.PackageID,
		EmployeeKey:  a.EmployeeKey,
		EmployeeName: a.Name,
		WorkerID:     a.WorkerIDRaw,
		EventType:    recon.EventAttested,
		Details:      notes,
	})
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the attestation activity of one package.
type Status struct {
	PackageID string                   `json:"packageId"`
	Events    []recon.AttestationEvent `json:"events"`
	Rows      []recon.StatusRow        `json:"rows"`
}

// Status returns events and per-employee rows for packageID, or for the
// latest package when packageID is empty.
func (s *Service) Status(ctx context.Context, packageID string) (Status, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		rec, err := s.packages.LatestPackage(ctx)
		if err != nil {
			return Status{}, err
		}
		packageID = rec.PackageID
	}
	events, err := s.events.Events(ctx, packageID)
	if err != nil {
		return Status{}, fmt.Errorf("load attestation events: %w", err)
	}
	if events == nil {
		events = []recon.AttestationEvent{}
	}
	return Status{PackageID: packageID, Events: events, Rows: recon.StatusRows(events)}, nil
}

// =============================================================================
// COMPLETION
// =============================================================================

// CompletionSubject is the subject line of the completion mail.
func CompletionSubject(start, end string) string {
	return fmt.Sprintf("Reconciliation Attestations Complete (%s to %s)", start, end)
}

// RetryCompletion re-checks the latest package for a completion mail that
// is due but was never sent.
func (s *Service) RetryCompletion(ctx context.Context) error {
	rec, err := s.packages.LatestPackage(ctx)
	if errors.Is(err, recon.ErrPackageNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.maybeNotifyCompletion(ctx, rec.PackageID)
}

func (s *Service) maybeNotifyCompletion(ctx context.Context, packageID string) error {
	rec, err := s.packages.GetPackage(ctx, packageID)
	if errors.Is(err, recon.ErrPackageNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.CompletionNotifiedAt != nil || rec.EmployeeCount == 0 {
		return nil
	}
	attested, err := s.events.CountAttested(ctx, packageID)
	if err != nil {
		return err
	}
	if attested < rec.EmployeeCount {
		return nil
	}

	events, err := s.events.Events(ctx, packageID)
	if err != nil {
		return err
	}
	attachment, err := workbook.WriteAttestations(events, s.loc)
	if err != nil {
		return fmt.Errorf("build attestation workbook: %w", err)
	}
	completedAt := s.now()
	msg := notify.Message{
		To:      s.recipients,
		Subject: CompletionSubject(rec.PeriodStart, rec.PeriodEnd),
		Text: strings.Join([]string{
			"All employees have completed their attestation.",
			"Completed at: " + completedAt.In(s.loc).Format("1/2/2006, 3:04:05 PM") + ".",
			"The attached spreadsheet includes each employee's attestation time and notes.",
		}, "\n"),
		Attachments: []notify.Attachment{{
			Filename:    workbook.AttestationsFilename(rec.PeriodStart, rec.PeriodEnd),
			ContentType: notify.XLSXContentType,
			Content:     attachment,
		}},
	}
	// Claim before sending: of two concurrent checks only one wins the
	// conditional mark, and the loser must not mail.
	claimed, err := s.packages.MarkCompletionNotified(ctx, packageID, completedAt)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	sent, err := s.notifier.Send(ctx, msg)
	if err != nil || !sent {
		if rerr := s.packages.ReleaseCompletionNotified(context.WithoutCancel(ctx), packageID); rerr != nil {
			return errors.Join(err, fmt.Errorf("release completion claim: %w", rerr))
		}
		return err
	}
	s.logger.Info().
		Str("package_id", packageID).
		Int("attested", attested).
		Msg("completion notification sent")
	return nil
}
