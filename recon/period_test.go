package recon_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-recon/recon"
)

func february() recon.Period {
	return recon.Period{
		Start: recon.NewDay(2026, time.February, 1),
		End:   recon.NewDay(2026, time.March, 1),
	}
}

func TestPeriod_ContainsExcludesBothEnds(t *testing.T) {
	p := february()

	assert.False(t, p.Contains(recon.NewDay(2026, time.February, 1)), "start is excluded")
	assert.True(t, p.Contains(recon.NewDay(2026, time.February, 2)))
	assert.True(t, p.Contains(recon.NewDay(2026, time.February, 28)))
	assert.False(t, p.Contains(recon.NewDay(2026, time.March, 1)), "end is excluded")
	assert.False(t, p.Contains(time.Time{}), "zero date is never contained")

	// Time of day is ignored.
	assert.True(t, p.Contains(time.Date(2026, time.February, 15, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2026, time.February, 1, 18, 0, 0, 0, time.UTC)))
}

func TestParsePeriod(t *testing.T) {
	p, err := recon.ParsePeriod("2026-02-01", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, february(), p)
	assert.Equal(t, "(2026-02-01, 2026-03-01)", p.String())

	empty, err := recon.ParsePeriod("2026-02-01", "2026-02-01")
	require.NoError(t, err)
	assert.False(t, empty.Contains(recon.NewDay(2026, time.February, 1)))

	_, err = recon.ParsePeriod("2026-03-01", "2026-02-01")
	assert.ErrorIs(t, err, recon.ErrInvalidPeriod)

	_, err = recon.ParsePeriod("02/01/2026", "2026-03-01")
	assert.ErrorIs(t, err, recon.ErrInvalidPeriod)
	assert.True(t, recon.IsClientError(err))
}

func TestDefaultPeriod(t *testing.T) {
	p := recon.DefaultPeriod(time.Date(2026, time.March, 17, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, february(), p)

	p = recon.DefaultPeriod(time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, recon.NewDay(2025, time.December, 1), p.Start)
	assert.Equal(t, recon.NewDay(2026, time.January, 1), p.End)
}
