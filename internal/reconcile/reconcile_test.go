package reconcile_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mesoprep/internal/reconcile"
	"mesoprep/internal/services"
)

func touch(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", p, err)
		}
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatalf("touch %s: %v", p, err)
		}
	}
}

func TestSearchWithDisambiguator(t *testing.T) {
	dir := t.TempDir()
	touch(t,
		filepath.Join(dir, "A_stim.pkl"),
		filepath.Join(dir, "B_stim.pkl"),
		filepath.Join(dir, "A_sync.h5"),
	)

	files, err := reconcile.Search(dir, []string{"*_stim.pkl"}, "A")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "A_stim.pkl" {
		t.Fatalf("expected exactly [A_stim.pkl], got %v", files)
	}
}

func TestSearchDeduplicatesOverlappingPatterns(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "20000001_timeseries.tiff"))

	files, err := reconcile.Search(dir, []string{"*timeseries.tiff", "*.tiff"}, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 deduplicated match, got %v", files)
	}
}

func TestSearchRecursesAndReturnsAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "sub", "deeper", "20000001_surface.roi")
	touch(t, nested)

	files, err := reconcile.Search(dir, []string{"*surface.roi"}, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(files) != 1 || files[0] != nested {
		t.Fatalf("expected [%s], got %v", nested, files)
	}
	if !filepath.IsAbs(files[0]) {
		t.Fatalf("expected absolute path, got %s", files[0])
	}
}

func TestSearchDirQualifiedPattern(t *testing.T) {
	dir := t.TempDir()
	inside := filepath.Join(dir, "sorted_local_z_stacks", "20000001_local_z_stack0_reg_ch_1.tif")
	outside := filepath.Join(dir, "20000001_reticle.tif")
	touch(t, inside, outside)

	files, err := reconcile.Search(dir, []string{"sorted_local_z_stacks/*.tif"}, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(files) != 1 || files[0] != inside {
		t.Fatalf("expected only the directory-qualified match, got %v", files)
	}
}

func TestTokenIsDelimiterBounded(t *testing.T) {
	dir := t.TempDir()
	touch(t,
		filepath.Join(dir, "1234_Eye_20250615T120000.mp4"),
		filepath.Join(dir, "12345_Eye_20250615T120000.mp4"),
	)

	files, err := reconcile.Search(dir, []string{"*Eye*.mp4"}, "1234")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "1234_Eye_20250615T120000.mp4" {
		t.Fatalf("token must not match shared-prefix session ids, got %v", files)
	}
}

func TestSearchReportListsMissingPatterns(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "20000001_stim.pkl"))

	report, err := reconcile.SearchReport(dir, []string{"*stim.pkl", "*stim_table.csv"}, "")
	if err != nil {
		t.Fatalf("SearchReport failed: %v", err)
	}
	if len(report.Files) != 1 {
		t.Fatalf("expected 1 match, got %v", report.Files)
	}
	if len(report.Missing) != 1 || report.Missing[0] != "*stim_table.csv" {
		t.Fatalf("expected missing [*stim_table.csv], got %v", report.Missing)
	}
}

func TestSearchStableOrdering(t *testing.T) {
	dir := t.TempDir()
	touch(t,
		filepath.Join(dir, "c.tiff"),
		filepath.Join(dir, "a.tiff"),
		filepath.Join(dir, "b.tiff"),
	)

	first, err := reconcile.Search(dir, []string{"*.tiff"}, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	second, err := reconcile.Search(dir, []string{"*.tiff"}, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 matches, got %v", first)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("ordering not stable: %v vs %v", first, second)
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i] < first[i-1] {
			t.Fatalf("result not sorted: %v", first)
		}
	}
}

func TestSearchMissingBaseDirectory(t *testing.T) {
	_, err := reconcile.Search(filepath.Join(t.TempDir(), "absent"), []string{"*"}, "")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
