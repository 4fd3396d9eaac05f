// Package utils collects small path helpers shared by the CLI and the
// dynamic-eval include-path search.
package utils

import "path/filepath"

// ResolveIncludePath resolves a relative path against a -I search
// directory. Absolute paths and paths already rooted at baseDir pass
// through unchanged.
func ResolveIncludePath(baseDir, p string) string {
	if p == "" {
		return p
	}
	if filepath.IsAbs(p) {
		return p
	}
	if baseDir == "" || baseDir == "." {
		return p
	}
	return filepath.Join(baseDir, p)
}

// SearchIncludeDirs returns the first dir in dirs under which name
// exists, or "" if none does. existsFn is injected so callers can stub
// the filesystem check in tests.
func SearchIncludeDirs(dirs []string, name string, existsFn func(string) bool) string {
	for _, d := range dirs {
		candidate := ResolveIncludePath(d, name)
		if existsFn(candidate) {
			return candidate
		}
	}
	return ""
}
