package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nomis52/agentpipe/analysis"
)

// isTestFile matches pytest's default discovery patterns.
func isTestFile(name string) bool {
	if filepath.Ext(name) != ".py" {
		return false
	}
	base := strings.TrimSuffix(name, ".py")
	return strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test")
}

// collectFiles reads every path. Files are taken as given; directories are
// walked for test files, skipping hidden directories.
func collectFiles(paths []string) ([]analysis.File, error) {
	var names []string
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			names = append(names, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			add(filepath.Clean(p))
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if isTestFile(d.Name()) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}

	files := make([]analysis.File, 0, len(names))
	for _, name := range names {
		content, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		files = append(files, analysis.File{Path: name, Content: string(content)})
	}
	return files, nil
}
