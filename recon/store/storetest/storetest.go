// Package storetest is a conformance suite for recon.PackageStore and
// recon.AttestationLog implementations. Every store package runs it against
// its own backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-recon/recon"
)

// Store is what the suite exercises.
type Store interface {
	recon.PackageStore
	recon.AttestationLog
}

// Factory returns an empty store. The suite does not close it.
type Factory func(t *testing.T) Store

var base = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func record(id string, generatedOffset time.Duration) recon.PackageRecord {
	return recon.PackageRecord{
		PackageID:     id,
		PeriodStart:   "2026-02-01",
		PeriodEnd:     "2026-03-01",
		GeneratedAt:   base.Add(generatedOffset),
		EmployeeCount: 2,
		Payload:       []byte(fmt.Sprintf(`{"packageId":%q,  "note":"kept verbatim"}`, id)),
		CreatedAt:     base.Add(time.Minute),
	}
}

// Run runs every conformance test.
func Run(t *testing.T, newStore Factory) {
	t.Run("ReplacePackage", func(t *testing.T) { testReplacePackage(t, newStore(t)) })
	t.Run("LatestPackageEmpty", func(t *testing.T) { testLatestEmpty(t, newStore(t)) })
	t.Run("DeletePackages", func(t *testing.T) { testDeletePackages(t, newStore(t)) })
	t.Run("MarkCompletionNotified", func(t *testing.T) { testMarkCompletionNotified(t, newStore(t)) })
	t.Run("ConcurrentMark", func(t *testing.T) { testConcurrentMark(t, newStore(t)) })
	t.Run("Events", func(t *testing.T) { testEvents(t, newStore(t)) })
	t.Run("CountAttested", func(t *testing.T) { testCountAttested(t, newStore(t)) })
	t.Run("ConcurrentAppend", func(t *testing.T) { testConcurrentAppend(t, newStore(t)) })
}

func testReplacePackage(t *testing.T, s Store) {
	ctx := context.Background()

	// GIVEN: a published package
	require.NoError(t, s.ReplacePackage(ctx, record("p1", 0)))

	// WHEN: publishing another, even one generated earlier
	require.NoError(t, s.ReplacePackage(ctx, record("p2", -time.Hour)))

	// THEN: only the new one remains, payload verbatim
	latest, err := s.LatestPackage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p2", latest.PackageID)
	assert.Equal(t, `{"packageId":"p2",  "note":"kept verbatim"}`, string(latest.Payload))
	assert.Equal(t, 2, latest.EmployeeCount)
	assert.Equal(t, "2026-02-01", latest.PeriodStart)
	assert.Equal(t, "2026-03-01", latest.PeriodEnd)
	assert.True(t, latest.GeneratedAt.Equal(base.Add(-time.Hour)))
	assert.Nil(t, latest.CompletionNotifiedAt)

	_, err = s.GetPackage(ctx, "p1")
	assert.ErrorIs(t, err, recon.ErrPackageNotFound)

	got, err := s.GetPackage(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, latest.PackageID, got.PackageID)
}

func testLatestEmpty(t *testing.T, s Store) {
	_, err := s.LatestPackage(context.Background())
	assert.ErrorIs(t, err, recon.ErrPackageNotFound)
}

func testDeletePackages(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.ReplacePackage(ctx, record("p1", 0)))

	id, err := s.DeleteLatestPackage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	_, err = s.DeleteLatestPackage(ctx)
	assert.ErrorIs(t, err, recon.ErrPackageNotFound)

	require.NoError(t, s.ReplacePackage(ctx, record("p2", 0)))
	n, err := s.DeleteAllPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.DeleteAllPackages(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testMarkCompletionNotified(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.ReplacePackage(ctx, record("p1", 0)))
	at := base.Add(2 * time.Hour)

	marked, err := s.MarkCompletionNotified(ctx, "p1", at)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = s.MarkCompletionNotified(ctx, "p1", at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, marked, "only the first mark wins")

	marked, err = s.MarkCompletionNotified(ctx, "missing", at)
	require.NoError(t, err)
	assert.False(t, marked)

	rec, err := s.GetPackage(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, rec.CompletionNotifiedAt)
	assert.True(t, rec.CompletionNotifiedAt.Equal(at))

	// WHEN: the claim is released after a failed send
	require.NoError(t, s.ReleaseCompletionNotified(ctx, "p1"))
	require.NoError(t, s.ReleaseCompletionNotified(ctx, "missing"))

	// THEN: the next mark wins again
	rec, err = s.GetPackage(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, rec.CompletionNotifiedAt)
	marked, err = s.MarkCompletionNotified(ctx, "p1", at)
	require.NoError(t, err)
	assert.True(t, marked)
}

func testConcurrentMark(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.ReplacePackage(ctx, record("p1", 0)))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			marked, err := s.MarkCompletionNotified(ctx, "p1", base)
			assert.NoError(t, err)
			if marked {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func event(id, pkg, key string, typ recon.EventType, offset time.Duration) recon.AttestationEvent {
	return recon.AttestationEvent{
		ID:           id,
		PackageID:    pkg,
		EmployeeKey:  key,
		EmployeeName: "Doe, Jane",
		WorkerID:     "0007",
		EventType:    typ,
		Details:      "notes " + id,
		CreatedAt:    base.Add(offset),
	}
}

func testEvents(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, event("e2", "p1", "id:7", recon.EventAttested, 2*time.Minute)))
	require.NoError(t, s.Append(ctx, event("e1", "p1", "id:7", recon.EventViewed, time.Minute)))
	require.NoError(t, s.Append(ctx, event("e3", "p2", "id:7", recon.EventViewed, 0)))

	events, err := s.Events(ctx, "p1")

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].ID, "oldest first")
	assert.Equal(t, "e2", events[1].ID)
	assert.Equal(t, recon.EventAttested, events[1].EventType)
	assert.Equal(t, "Doe, Jane", events[1].EmployeeName)
	assert.Equal(t, "0007", events[1].WorkerID)
	assert.Equal(t, "notes e2", events[1].Details)
	assert.True(t, events[1].CreatedAt.Equal(base.Add(2*time.Minute)))

	none, err := s.Events(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testCountAttested(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, event("e1", "p1", "id:7", recon.EventAttested, 0)))
	require.NoError(t, s.Append(ctx, event("e2", "p1", "id:7", recon.EventAttested, time.Minute)))
	require.NoError(t, s.Append(ctx, event("e3", "p1", "name:john roe", recon.EventViewed, 0)))
	require.NoError(t, s.Append(ctx, event("e4", "p1", "name:john roe", recon.EventAttested, time.Minute)))
	require.NoError(t, s.Append(ctx, event("e5", "p2", "id:9", recon.EventAttested, 0)))

	n, err := s.CountAttested(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "distinct employee keys")

	// Events outlive their package.
	require.NoError(t, s.ReplacePackage(ctx, record("p3", 0)))
	n, err = s.CountAttested(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testConcurrentAppend(t *testing.T, s Store) {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("id:%d", i)
			assert.NoError(t, s.Append(ctx, event(fmt.Sprintf("e%d", i), "p1", key, recon.EventAttested, time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()

	n, err := s.CountAttested(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}
