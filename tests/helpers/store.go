// Package helpers provides shared fixtures for tests.
package helpers

import (
	"testing"

	"github.com/KaanK026/Harvia/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
