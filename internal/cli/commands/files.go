package commands

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.lsp.dev/uri"
)

// readDocument reads path and returns its content with the file URI it is indexed under
func readDocument(path string) (content, docURI string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), fileURI(path), nil
}

func fileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return string(uri.File(path))
}

// findFiles expands args into the files matching patterns. Directories are walked
// recursively skipping hidden ones and names matching ignored; an empty args list
// means the working directory.
func findFiles(args, patterns, ignored []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	seen := map[string]bool{}
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			matches, globErr := filepath.Glob(arg)
			if globErr != nil || len(matches) == 0 {
				return nil, fmt.Errorf("no such file: %s", arg)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != arg && (strings.HasPrefix(name, ".") || matchesAny(name, ignored)) {
					return filepath.SkipDir
				}
				return nil
			}
			if matchesAny(name, patterns) && !matchesAny(name, ignored) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}
