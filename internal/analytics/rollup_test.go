package analytics

import (
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sellgrid/marketplace-backend/pkg/logger"
)

func newTestRollup(t *testing.T, repo Repository) *Rollup {
	t.Helper()
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	rollup, err := NewRollup(repo, logg)
	if err != nil {
		t.Fatalf("NewRollup: %v", err)
	}
	return rollup
}
