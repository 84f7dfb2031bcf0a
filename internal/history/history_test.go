package history

import (
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hist")

	entries := []string{"one", "two", "three"}
	if err := Save(path, entries, 10); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2] != "three" {
		t.Fatalf("got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	got, err := Load("/nonexistent/path/to/history", 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestPushSkipsDuplicateOfLast(t *testing.T) {
	entries := Push(nil, "a", 10)
	entries = Push(entries, "a", 10)
	if len(entries) != 1 {
		t.Fatalf("duplicate push should be skipped, got %v", entries)
	}
}

func TestPushTruncatesToLimit(t *testing.T) {
	var entries []string
	for i := 0; i < 5; i++ {
		entries = Push(entries, string(rune('a'+i)), 3)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[len(entries)-1] != "e" {
		t.Fatalf("last entry = %q, want e", entries[len(entries)-1])
	}
}
