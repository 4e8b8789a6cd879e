package store_test

import (
	"testing"

	"github.com/warp/timesheet-recon/recon/store"
	"github.com/warp/timesheet-recon/recon/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		return store.NewMemory()
	})
}
