package testsupport

import (
	"testing"

	"subtitler/internal/config"
	"subtitler/internal/history"
)

// MustOpenHistory opens the job ledger configured by cfg and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
