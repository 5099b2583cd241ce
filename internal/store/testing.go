package store

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// OpenTest opens a fresh in-memory store for a test. Each call gets its own
// named shared-cache database so parallel tests don't see each other's rows.
func OpenTest(tb testing.TB) *Store {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := Open(dsn)
	if err != nil {
		tb.Fatalf("opening test store: %v", err)
	}
	return s
}
