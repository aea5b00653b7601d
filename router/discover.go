package router

import (
	"fmt"
	"io/fs"
	"path"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/deicod/webity/runtime"
)

// ListRoutes returns base followed by every descendant directory reachable
// through a chain of directories that each contain index.html. A directory
// without index.html is listed but not descended into. Directories matching
// an ignore glob are skipped with everything below them.
func (r *Router) ListRoutes(base string) ([]string, error) {
	base = path.Clean(base)
	entries, err := fs.ReadDir(r.fsys, base)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", base, err)
	}

	routes := []string{base}
	hasIndex := false
	var folders []string
	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, entry.Name())
		} else if entry.Name() == runtime.DefaultFile {
			hasIndex = true
		}
	}
	if !hasIndex {
		return routes, nil
	}

	for _, folder := range folders {
		child := path.Join(base, folder)
		if r.ignored(child) {
			continue
		}
		nested, err := r.ListRoutes(child)
		if err != nil {
			return nil, err
		}
		routes = append(routes, nested...)
	}
	return routes, nil
}

func (r *Router) ignored(dir string) bool {
	for _, pattern := range r.ignore {
		if ok, _ := doublestar.Match(pattern, dir); ok {
			return true
		}
	}
	return false
}

// hasIndex reports whether dir holds an index.html
func (r *Router) hasIndex(dir string) bool {
	info, err := fs.Stat(r.fsys, path.Join(dir, runtime.DefaultFile))
	return err == nil && !info.IsDir()
}

// Pages returns every index.html below base regardless of chains, for
// reporting pages that no route reaches
func (r *Router) Pages(base string) ([]string, error) {
	matches, err := doublestar.Glob(r.fsys, path.Join(path.Clean(base), "**", runtime.DefaultFile))
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s: %w", base, err)
	}
	dirs := make([]string, 0, len(matches))
	for _, m := range matches {
		dir := path.Dir(m)
		if !r.ignored(dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}
