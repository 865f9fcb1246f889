package store

import (
	"path/filepath"
	"testing"

	"github.com/aquavit/Brahma-sub001/internal/compute"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTranslation creates a translation with minimal required fields.
func createTestTranslation(key, backend, kernel string) compute.Translation {
	return compute.Translation{
		ProviderID: "provider-1",
		Key:        key,
		Backend:    backend,
		KernelName: kernel,
		Source:     "// " + kernel + " on " + backend + "\n",
	}
}
