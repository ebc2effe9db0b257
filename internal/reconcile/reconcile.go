// Package reconcile maps a directory of loosely-named acquisition files onto
// glob patterns. Results are deduplicated and sorted so repeated runs over
// the same tree produce identical manifests.
package reconcile

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"mesoprep/internal/services"
)

// Report is the outcome of matching one pattern set against a tree.
type Report struct {
	// Files are the matched absolute paths, deduplicated and sorted.
	Files []string
	// Missing lists patterns that matched nothing. Not an error at this
	// layer; the caller decides whether missing files are fatal.
	Missing []string
}

// Search returns the files under base matching any of the glob patterns,
// optionally restricted by a session token.
//
// A pattern without a slash matches file base names anywhere in the tree; a
// pattern with slashes matches the trailing components of the relative path
// (so "sorted_local_z_stacks/*.tif" matches only inside that directory).
//
// A non-empty token keeps only files whose relative path contains the token
// bounded by non-alphanumeric delimiters. Token matching is deliberately not
// a raw substring test: session "1234" must not claim files of session
// "12345".
func Search(base string, patterns []string, token string) ([]string, error) {
	report, err := SearchReport(base, patterns, token)
	if err != nil {
		return nil, err
	}
	return report.Files, nil
}

// SearchReport is Search plus the list of patterns that matched nothing.
func SearchReport(base string, patterns []string, token string) (Report, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return Report{}, fmt.Errorf("resolve base %q: %w", base, err)
	}
	if _, err := os.Stat(absBase); err != nil {
		if os.IsNotExist(err) {
			return Report{}, services.Wrap(services.ErrNotFound, "reconcile", "search",
				fmt.Sprintf("search directory %s does not exist", absBase), nil)
		}
		return Report{}, fmt.Errorf("stat base %q: %w", absBase, err)
	}

	// One walk serves every pattern.
	type entry struct {
		rel string // slash-separated, relative to base
		abs string
	}
	var entries []entry
	walkErr := filepath.WalkDir(absBase, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(absBase, p)
		if relErr != nil {
			return relErr
		}
		entries = append(entries, entry{rel: filepath.ToSlash(rel), abs: p})
		return nil
	})
	if walkErr != nil {
		return Report{}, fmt.Errorf("walk %s: %w", absBase, walkErr)
	}

	seen := make(map[string]struct{})
	var missing []string
	for _, pattern := range patterns {
		matchedAny := false
		for _, e := range entries {
			ok, matchErr := matchPattern(pattern, e.rel)
			if matchErr != nil {
				return Report{}, services.Wrap(services.ErrConfiguration, "reconcile", "search",
					fmt.Sprintf("bad pattern %q", pattern), matchErr)
			}
			if !ok {
				continue
			}
			if token != "" && !containsToken(e.rel, token) {
				continue
			}
			matchedAny = true
			seen[e.abs] = struct{}{}
		}
		if !matchedAny {
			missing = append(missing, pattern)
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return Report{Files: files, Missing: missing}, nil
}

// matchPattern matches a glob pattern against a slash-relative path. Patterns
// without a separator apply to the base name; patterns with separators apply
// to the same number of trailing path components.
func matchPattern(pattern, rel string) (bool, error) {
	if !strings.Contains(pattern, "/") {
		return path.Match(pattern, path.Base(rel))
	}
	want := strings.Count(pattern, "/") + 1
	parts := strings.Split(rel, "/")
	if len(parts) < want {
		return false, nil
	}
	suffix := strings.Join(parts[len(parts)-want:], "/")
	return path.Match(pattern, suffix)
}

// containsToken reports whether s contains token bounded by non-alphanumeric
// characters (or the string edges).
func containsToken(s, token string) bool {
	for offset := 0; ; {
		idx := strings.Index(s[offset:], token)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(token)
		beforeOK := start == 0 || !isAlphanumeric(s[start-1])
		afterOK := end == len(s) || !isAlphanumeric(s[end])
		if beforeOK && afterOK {
			return true
		}
		offset = start + 1
	}
}

func isAlphanumeric(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
