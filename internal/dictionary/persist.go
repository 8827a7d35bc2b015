package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LearnedFileVersion is the current learned-layer file format version
const LearnedFileVersion = 1

// learnedFile is the on-disk shape of the learned layer: flat and
// human-inspectable. The base dictionary and whitelist are never
// serialized, so learning stays session-scoped unless a caller opts
// into persistence.
type learnedFile struct {
	Version int            `yaml:"version"`
	SavedAt time.Time      `yaml:"saved_at"`
	Entries []LearnedEntry `yaml:"entries"`
}

// Load reads a previously persisted learned layer. A missing or
// corrupt file never aborts the pipeline: the dictionary falls back to
// an empty learned layer with a logged warning.
func (d *Dictionary) Load(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		d.logger.WithFields("path", path).Debug("No learned dictionary file, starting empty")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		d.logger.WithFields("path", path).WithError(err).
			Warn("Failed to read learned dictionary, starting empty")
		return nil
	}

	var file learnedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		d.logger.WithFields("path", path).WithError(err).
			Warn("Failed to parse learned dictionary, starting empty")
		return nil
	}

	if file.Version != LearnedFileVersion {
		d.logger.WithFields("path", path, "version", file.Version, "expected", LearnedFileVersion).
			Warn("Unsupported learned dictionary version, starting empty")
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.learned = make(map[string]*LearnedEntry, len(file.Entries))
	for _, entry := range file.Entries {
		key := normalize(entry.Word)
		if key == "" {
			continue
		}
		// Static entries still win: a stale learned file must not
		// shadow the base dictionary or whitelist
		if _, ok := d.base[key]; ok {
			continue
		}
		if _, ok := d.whitelist[key]; ok {
			continue
		}
		stored := entry
		stored.Word = key
		d.learned[key] = &stored
	}

	d.logger.WithFields("path", path, "entries", len(d.learned)).
		Debug("Loaded learned dictionary")
	return nil
}

// Persist writes the learned layer atomically (temp file + rename) so
// a concurrent reader never sees a partial file
func (d *Dictionary) Persist(path string) error {
	file := learnedFile{
		Version: LearnedFileVersion,
		SavedAt: time.Now().UTC(),
		Entries: d.LearnedEntries(),
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal learned dictionary: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create learned dictionary directory: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp learned dictionary: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile) // Clean up temp file on error
		return fmt.Errorf("failed to rename temp learned dictionary: %w", err)
	}

	d.logger.WithFields("path", path, "entries", len(file.Entries)).
		Debug("Persisted learned dictionary")
	return nil
}
