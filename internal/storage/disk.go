package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DiskUsageBytes returns the bytes used by the given files and directories.
// Empty and missing paths count as zero. A path nested inside another listed
// directory is counted once.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range dedupePaths(paths) {
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, err
		}
	}
	return total, nil
}

// dedupePaths cleans paths and drops empty, repeated, and nested entries.
func dedupePaths(paths []string) []string {
	var out []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		covered := false
		kept := out[:0]
		for _, q := range out {
			if within(q, p) {
				covered = true
			}
			if covered || !within(p, q) {
				kept = append(kept, q)
			}
		}
		out = kept
		if !covered {
			out = append(out, p)
		}
	}
	return out
}

// within reports whether path is dir or lies under it.
func within(dir, path string) bool {
	if dir == path {
		return true
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
