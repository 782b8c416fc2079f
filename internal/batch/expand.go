package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand resolves glob patterns to files. Plain paths are kept as given so
// a missing file surfaces as a per-file failure. Patterns that match nothing
// are returned separately. The result is de-duplicated and keeps input order,
// with each pattern's matches sorted.
func Expand(inputs []string) (files, unmatched []string, err error) {
	seen := map[string]bool{}
	add := func(p string) {
		key := filepath.Clean(p)
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if !seen[key] {
			seen[key] = true
			files = append(files, p)
		}
	}
	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		if !isPattern(in) {
			add(in)
			continue
		}
		base, pattern := doublestar.SplitPattern(filepath.ToSlash(in))
		matches, gerr := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
		if gerr != nil {
			return nil, nil, fmt.Errorf("expand %q: %w", in, gerr)
		}
		if len(matches) == 0 {
			unmatched = append(unmatched, in)
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(filepath.Join(filepath.FromSlash(base), filepath.FromSlash(m)))
		}
	}
	return files, unmatched, nil
}

func isPattern(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
