package dictionary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPersistLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learned.yaml")

	d := New(&Config{MinSightings: 3})
	d.Learn("zuhandensein", Evidence{Confirmed: true})
	d.Learn("verfallenheit", Evidence{Sightings: 3})

	if err := d.Persist(path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	loaded := New(&Config{MinSightings: 3})
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LearnedCount() != 2 {
		t.Errorf("expected 2 learned entries after load, got %d", loaded.LearnedCount())
	}
	if !loaded.Contains("zuhandensein") {
		t.Error("expected confirmed entry to survive the round trip")
	}
	if !loaded.Contains("verfallenheit") {
		t.Error("expected sighted entry to survive the round trip")
	}

	entry, ok := loaded.Lookup("zuhandensein")
	if !ok {
		t.Fatal("expected learned entry to resolve after load")
	}
	if entry.Source != SourceLearned {
		t.Errorf("expected source = %s, got %s", SourceLearned, entry.Source)
	}
}

func TestPersist_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "learned.yaml")

	d := New(nil)
	d.Learn("verfallenheit", Evidence{Confirmed: true})

	if err := d.Persist(path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected persisted file to exist: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	d := New(nil)

	err := d.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected missing file to be tolerated, got %v", err)
	}
	if d.LearnedCount() != 0 {
		t.Errorf("expected empty learned layer, got %d entries", d.LearnedCount())
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learned.yaml")
	if err := os.WriteFile(path, []byte("{{{ not yaml at all"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	d := New(nil)
	if err := d.Load(path); err != nil {
		t.Fatalf("expected corrupt file to be tolerated, got %v", err)
	}
	if d.LearnedCount() != 0 {
		t.Errorf("expected empty learned layer after corrupt load, got %d entries", d.LearnedCount())
	}
}

func TestLoad_VersionMismatch(t *testing.T) {
	content := `version: 99
saved_at: 2026-01-02T15:04:05Z
entries:
  - word: ghostword
    sightings: 9
`
	path := filepath.Join(t.TempDir(), "learned.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	d := New(nil)
	if err := d.Load(path); err != nil {
		t.Fatalf("expected version mismatch to be tolerated, got %v", err)
	}
	if d.LearnedCount() != 0 {
		t.Errorf("expected entries from an unknown version to be dropped, got %d", d.LearnedCount())
	}
}

func TestLoad_SkipsStaticShadows(t *testing.T) {
	content := `version: 1
saved_at: 2026-01-02T15:04:05Z
entries:
  - word: morning
    sightings: 10
  - word: dasein
    sightings: 10
  - word: verfallenheit
    sightings: 10
`
	path := filepath.Join(t.TempDir(), "learned.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	d := New(nil)
	if err := d.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Entries shadowing the base dictionary or the scholarly whitelist
	// never enter the learned layer
	if d.LearnedCount() != 1 {
		t.Errorf("expected only the genuinely novel entry, got %d", d.LearnedCount())
	}
	if entry, _ := d.Lookup("morning"); entry.Source != SourceBase {
		t.Errorf("expected base source for morning, got %s", entry.Source)
	}
	if !d.Contains("verfallenheit") {
		t.Error("expected novel entry to be loaded")
	}
}

func TestPersist_OnlyLearnedLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learned.yaml")

	d := New(nil)
	d.Learn("verfallenheit", Evidence{Confirmed: true})
	if err := d.Persist(path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read persisted file: %v", err)
	}

	// The static layers stay out of the persisted file
	content := string(data)
	for _, static := range []string{"morning", "dasein"} {
		if strings.Contains(content, static) {
			t.Errorf("persisted file unexpectedly contains static word %q", static)
		}
	}
	if !strings.Contains(content, "verfallenheit") {
		t.Error("persisted file missing learned word")
	}
}
