package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-recon/recon/store/storetest"
	"github.com/warp/timesheet-recon/store/postgres"
)

// RECON_TEST_DATABASE_URL points at a scratch database. Its packages and
// attestation_events tables are truncated before every subtest.
const testDatabaseEnv = "RECON_TEST_DATABASE_URL"

func TestPostgres(t *testing.T) {
	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}
	ctx := context.Background()

	s, err := postgres.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	storetest.Run(t, func(t *testing.T) storetest.Store {
		require.NoError(t, s.Truncate(ctx))
		return s
	})
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := postgres.New(context.Background(), "")
	require.Error(t, err)
}
