// Package fsutil holds small file system helpers shared by the config loader.
package fsutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// FindFilesByExtension walks rootPath and returns the full paths of all
// regular files whose extension matches ext (including the leading dot).
// WalkDir visits entries in lexical order, so the result is deterministic.
func FindFilesByExtension(rootPath string, ext string) ([]string, error) {
	if ext == "" || ext[0] != '.' {
		return nil, fmt.Errorf("extension must start with a dot, got %q", ext)
	}

	var found []string
	walkErr := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ext {
			found = append(found, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return found, nil
}
