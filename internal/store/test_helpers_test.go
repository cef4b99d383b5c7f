package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun registers a run with an empty config.
func createTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.WriteRun(context.Background(), id, "test-"+id, nil); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
}

// verifyPragma checks that a pragma reads back as expected.
func verifyPragma(t *testing.T, s *Store, name, expected string) {
	t.Helper()
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		t.Fatalf("failed to query %s: %v", name, err)
	}
	if value != expected {
		t.Errorf("%s = %q, expected %q", name, value, expected)
	}
}
