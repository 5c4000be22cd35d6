package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cernvm/litescript/pkg/compiler"
)

// ErrInvalidPattern is returned for exclude patterns that cannot be matched.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// sep stands in for '/' while matching, so doublestar wildcards also match
// across directories. NUL cannot occur in a path.
const sep = "\x00"

// Excluded reports whether name matches any of patterns.
//
// Patterns follow the archive tool's --exclude defaults: they are unanchored,
// matching the whole name or any trailing run of its path components, and
// wildcards match '/' too, so `usr/*/doc` excludes `usr/share/lib/doc`.
func Excluded(name string, patterns []string) bool {
	parts := strings.Split(name, "/")
	for _, p := range patterns {
		p = strings.ReplaceAll(strings.TrimSuffix(p, "/"), "/", sep)
		for i := range parts {
			if ok, _ := doublestar.Match(p, strings.Join(parts[i:], sep)); ok {
				return true
			}
		}
	}

	return false
}

// Files lists the paths in fsys that the archive for spec would contain,
// in walk order. fsys should be rooted at the archive base directory.
// Repeated include directories are listed once.
func Files(fsys fs.FS, spec compiler.ArchiveSpec) ([]string, error) {
	for _, p := range spec.ExcludePatterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}

	files := []string{}
	seen := map[string]bool{}

	for _, dir := range spec.IncludeDirs {
		root := path.Clean(strings.TrimPrefix(dir, "/"))
		if seen[root] {
			continue
		}

		seen[root] = true

		err := fs.WalkDir(fsys, root, func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if Excluded(name, spec.ExcludePatterns) {
				if d.IsDir() {
					return fs.SkipDir
				}

				return nil
			}

			files = append(files, name)

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	}

	return files, nil
}
