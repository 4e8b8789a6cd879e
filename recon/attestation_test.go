package recon_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-recon/recon"
)

func at(hour int) time.Time { return time.Date(2026, time.March, 3, hour, 0, 0, 0, time.UTC) }

func event(key string, typ recon.EventType, hour int, details string) recon.AttestationEvent {
	return recon.AttestationEvent{
		PackageID:   "p",
		EmployeeKey: key,
		EventType:   typ,
		Details:     details,
		CreatedAt:   at(hour),
	}
}

func TestAttestationEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   recon.AttestationEvent
		field   string
		message string
	}{
		{"missing package", recon.AttestationEvent{EmployeeKey: "id:7", EventType: recon.EventViewed}, "", "Missing attestation fields"},
		{"bad type", event("id:7", "Approved", 9, ""), "eventType", "Invalid event type"},
		{"long notes", event("id:7", recon.EventAttested, 9, strings.Repeat("é", 257)), "details", "Notes must be 256 characters or fewer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Normalize().Validate()
			var verr *recon.EventValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, verr.Message)
			assert.ErrorIs(t, err, recon.ErrInvalidEvent)
			assert.True(t, recon.IsClientError(err))
		})
	}

	ok := event("id:7", recon.EventAttested, 9, strings.Repeat("é", 256))
	assert.NoError(t, ok.Validate(), "256 characters, not bytes")
}

func TestAttestationEvent_Normalize(t *testing.T) {
	e := recon.AttestationEvent{PackageID: " p ", EmployeeKey: " id:7", Details: "  fixed  "}.Normalize()
	assert.Equal(t, "p", e.PackageID)
	assert.Equal(t, "id:7", e.EmployeeKey)
	assert.Equal(t, "fixed", e.Details)
}

func TestStatusRows(t *testing.T) {
	events := []recon.AttestationEvent{
		event("id:7", recon.EventViewed, 9, ""),
		event("id:7", recon.EventAttested, 10, "first"),
		event("id:7", recon.EventViewed, 11, ""),
		event("id:7", recon.EventAttested, 12, "second"),
		event("name:john roe", recon.EventViewed, 8, ""),
	}
	events[0].EmployeeName = "Doe, Jane"

	rows := recon.StatusRows(events)

	require.Len(t, rows, 2)
	jane := rows[0]
	assert.Equal(t, "id:7", jane.EmployeeKey)
	assert.Equal(t, "Doe, Jane", jane.EmployeeName)
	assert.Equal(t, at(11), *jane.LastViewed)
	assert.Equal(t, at(12), *jane.LastAttested)
	assert.Equal(t, "second", jane.AttestationNotes)

	john := rows[1]
	assert.Nil(t, john.LastAttested)
	assert.Equal(t, at(8), *john.LastViewed)

	latest := recon.LatestAttestations(events)
	require.Len(t, latest, 1)
	assert.Equal(t, "second", latest[0].Details)
}

func TestAnnotateStatus(t *testing.T) {
	assignments := []recon.Assignment{
		assignment("A1", "Roe, John", "", "Audit"),
		assignment("A2", "Doe, Jane", "0007", "AML Testing"),
		assignment("A3", "Park, Min", "0012", "Risk"),
	}
	rows := recon.StatusRows([]recon.AttestationEvent{
		event("id:7", recon.EventAttested, 10, "done"),
		event("name:john roe", recon.EventViewed, 9, ""),
	})

	statuses := recon.AnnotateStatus(assignments, rows)

	require.Len(t, statuses, 3)
	assert.Equal(t, "Doe, Jane", statuses[0].Assignment.Name, "ordered by name")
	assert.Equal(t, recon.StateCompleted, statuses[0].State)
	assert.Equal(t, "done", statuses[0].AttestationNotes)
	assert.Equal(t, recon.StateNotStarted, statuses[1].State)
	assert.Equal(t, recon.StateInProgress, statuses[2].State)

	assert.Equal(t, map[recon.AttestationState]int{
		recon.StateCompleted:  1,
		recon.StateInProgress: 1,
		recon.StateNotStarted: 1,
	}, recon.StatusCounts(statuses))
	assert.Equal(t, recon.StateCompleted, recon.StatusByKey(statuses)["id:7"].State)
}
