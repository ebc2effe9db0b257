package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileTimestampLayout names manifest files by construction time, not
// acquisition time, so repeated runs for the same session never collide
// (except within the same second, an accepted risk).
const fileTimestampLayout = "20060102150405"

// Writer serializes manifests into a directory.
type Writer struct {
	// Dir receives manifest files; created on first write if absent.
	Dir string
	// Now supplies the construction timestamp embedded in file names.
	Now func() time.Time
}

// NewWriter returns a Writer for dir using the wall clock.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// Write serializes m as YAML into the writer's directory and returns the
// written path. Exactly one file is written per invocation.
func (w *Writer) Write(m *Manifest) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create manifest directory %q: %w", w.Dir, err)
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	path := filepath.Join(w.Dir, fmt.Sprintf("manifest_%s.yaml", now().Format(fileTimestampLayout)))

	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest %s: %w", path, err)
	}
	return path, nil
}
