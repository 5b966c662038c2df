package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jvmtools/svcgen/internal/classfile"
)

// CompiledUnits walks dir and returns the binary name of every class file
// below it, in filesystem walk order. A missing directory is not an error:
// it yields no names.
func CompiledUnits(dir string) ([]string, error) {
	var names []string
	err := CompiledUnitsFunc(dir, func(name string) {
		names = append(names, name)
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Sorted is CompiledUnits with the names in lexicographic order.
func Sorted(dir string) ([]string, error) {
	names, err := CompiledUnits(dir)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// CompiledUnitsFunc walks dir and calls fn with each binary name found.
// Unreadable subdirectories are skipped.
func CompiledUnitsFunc(dir string, fn func(name string)) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading class directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("class directory %s is not a directory", dir)
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil // skip inaccessible entries
		}
		if d.IsDir() || !isClassFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		fn(BinaryName(rel))
		return nil
	})
}

// BinaryName derives a binary name from a class file path relative to its
// root: the extension is stripped and separators become dots.
func BinaryName(rel string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), classfile.Extension)
	return strings.ReplaceAll(rel, "/", ".")
}

func isClassFile(name string) bool {
	return strings.HasSuffix(name, classfile.Extension) && len(name) > len(classfile.Extension)
}
