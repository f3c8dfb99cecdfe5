package capi

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand returns the files matching a glob pattern. A leading ~ is the
// user's home directory and ** matches any number of directories.
func Expand(pattern string) ([]string, error) {
	path, err := expandPath(pattern)
	if err != nil {
		return nil, err
	}
	if !doublestar.ValidatePathPattern(path) {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	files, err := doublestar.FilepathGlob(path, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("can't expand %q: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

func expandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("can't expand %q: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}
