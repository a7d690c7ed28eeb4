package finder

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ritzau/link-analyzer/pkg/document"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/tabular"
)

// IsInput reports whether a file name looks like something the analyzer can
// read: a table or a document. Hidden files and office lock files are not.
func IsInput(name string) bool {
	base := filepath.Base(name)
	if Ignored(base) {
		return false
	}
	if tabular.Supported(base) {
		return true
	}
	return document.Detect(model.File{Name: base}) != document.FormatUnknown
}

// Ignored reports whether a file or directory name is skipped while scanning.
func Ignored(base string) bool {
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") ||
		strings.HasSuffix(base, ".part") || strings.HasSuffix(base, ".tmp")
}

// FindInputFiles walks root and returns the analyzable files in lexical
// order, skipping hidden directories.
func FindInputFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && Ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if IsInput(path) {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)
	return files, err
}

// FindDirs returns root and every directory below it that is not skipped.
func FindDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && Ignored(d.Name()) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}
