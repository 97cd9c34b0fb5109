package source

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FindLatest returns the file under dir matching pattern (a filepath.Match
// glob, e.g. "*.csv") with the greatest modification time.
//
// A missing directory is created as a convenience and reported as "no file
// yet", not as an error. When nothing matches, the returned path is empty.
func FindLatest(dir, pattern string) (path string, modTime time.Time, err error) {
	if pattern == "" {
		pattern = "*.csv"
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return "", time.Time{}, fmt.Errorf("source: create scan directory %s: %w", dir, mkErr)
			}
			return "", time.Time{}, nil
		}
		return "", time.Time{}, fmt.Errorf("source: read scan directory %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, matchErr := filepath.Match(pattern, e.Name())
		if matchErr != nil {
			return "", time.Time{}, fmt.Errorf("source: bad file pattern %q: %w", pattern, matchErr)
		}
		if !ok {
			continue
		}
		info, infoErr := e.Info()
		if infoErr != nil {
			continue
		}
		if path == "" || info.ModTime().After(modTime) {
			path = filepath.Join(dir, e.Name())
			modTime = info.ModTime()
		}
	}

	return path, modTime, nil
}
