package emitter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// PlannedFile describes a file the generator intends to write.
type PlannedFile struct {
	Path string
	Size int
	Mode os.FileMode
}

// Plan lists files in deterministic order.
func Plan(files map[string][]byte) []PlannedFile {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	planned := make([]PlannedFile, 0, len(paths))
	for _, p := range paths {
		planned = append(planned, PlannedFile{Path: p, Size: len(files[p]), Mode: 0o644})
	}
	return planned
}

// Write stores every file atomically. Existing files are only replaced when
// force is set; the check runs for all files before anything is written.
func Write(files map[string][]byte, force bool) error {
	planned := Plan(files)
	if !force {
		for _, pf := range planned {
			st, err := os.Stat(pf.Path)
			if err == nil {
				if st.IsDir() {
					return fmt.Errorf("emitter: %q is a directory", pf.Path)
				}
				return fmt.Errorf("emitter: %q already exists (use --force to overwrite)", pf.Path)
			}
		}
	}
	for _, pf := range planned {
		if err := writeAtomic(pf.Path, files[pf.Path], pf.Mode); err != nil {
			return err
		}
	}
	return nil
}

func writeAtomic(path string, content []byte, mode os.FileMode) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := abs + ".tmp-" + strconv.Itoa(os.Getpid())
	if err := os.WriteFile(tmp, content, mode); err != nil {
		return fmt.Errorf("write temp %s: %w", path, err)
	}
	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
