package schema

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tagforge/internal/logging"
)

func writeSchema(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
}

const minimalSchema = `
[dimensions.category]
values = ["e-liquid"]
[dimensions.flavor_family]
values = ["fruity"]
`

const editedSchema = `
[dimensions.category]
values = ["e-liquid", "device"]
[dimensions.flavor_family]
values = ["fruity", "ice"]
`

func TestCacheServesSnapshotWithinTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	writeSchema(t, path, minimalSchema)

	cache, err := NewCache(path, time.Minute, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	writeSchema(t, path, editedSchema)
	if got := cache.Current(); len(got.Categories()) != 1 {
		t.Fatalf("expected stale snapshot inside TTL, got %v", got.Categories())
	}
}

func TestCacheRefreshesAfterTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	writeSchema(t, path, minimalSchema)

	cache, err := NewCache(path, time.Minute, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	current := time.Now()
	cache.now = func() time.Time { return current }

	writeSchema(t, path, editedSchema)
	current = current.Add(2 * time.Minute)

	got := cache.Current()
	if len(got.Categories()) != 2 {
		t.Fatalf("expected refreshed snapshot, got %v", got.Categories())
	}
}

func TestCacheKeepsSnapshotOnBrokenEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	writeSchema(t, path, minimalSchema)

	cache, err := NewCache(path, time.Minute, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	current := time.Now()
	cache.now = func() time.Time { return current }

	writeSchema(t, path, "not toml [[[")
	current = current.Add(2 * time.Minute)

	got := cache.Current()
	if len(got.Categories()) != 1 {
		t.Fatalf("expected previous snapshot after failed reload, got %v", got.Categories())
	}
}

func TestCacheConcurrentReaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	writeSchema(t, path, minimalSchema)

	cache, err := NewCache(path, time.Nanosecond, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if cache.Current() == nil {
					t.Error("nil snapshot")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNewCacheMissingFileFatal(t *testing.T) {
	if _, err := NewCache(filepath.Join(t.TempDir(), "absent.toml"), time.Minute, logging.NewNop()); err == nil {
		t.Fatal("expected error for missing schema file")
	}
}
