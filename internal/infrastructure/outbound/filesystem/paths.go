package filesystem

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ensureWithin fails when path, after resolving symlinks where possible,
// lies outside root.
func ensureWithin(root, path string) error {
	real := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		real = resolved
	} else if dir, err := filepath.EvalSymlinks(filepath.Dir(path)); err == nil {
		real = filepath.Join(dir, filepath.Base(path))
	}

	realRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		realRoot = resolved
	}

	rel, err := filepath.Rel(realRoot, real)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal denied: %s is outside root %s", path, root)
	}
	return nil
}

// skipped reports whether a catalog-relative path is ignored when scanning
// for definitions: hidden files and anything under a directory starting
// with an underscore (such as _data).
func skipped(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") || strings.HasPrefix(part, "_") {
			return true
		}
	}
	return false
}

// collectionOf returns the first-level directory holding rel, or "" for
// files directly in the root.
func collectionOf(rel string) string {
	rel = filepath.ToSlash(rel)
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return rel[:i]
	}
	return ""
}
