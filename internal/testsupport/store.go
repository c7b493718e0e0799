package testsupport

import (
	"testing"

	"imagededup/internal/config"
	"imagededup/internal/store"
)

// MustOpenStore opens the SQLite fingerprint store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.SQLite {
	t.Helper()

	st, err := store.Open(cfg.Paths.CachePath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}
