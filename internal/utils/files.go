package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FindFiles expands paths into files. Files are returned as given;
// directories are walked recursively for files whose extension is in exts.
// Hidden files and directories below a given directory are skipped.
func FindFiles(paths []string, exts []string) ([]string, error) {
	want := make(map[string]bool, len(exts))
	for _, ext := range exts {
		want[ext] = true
	}

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			files = append(files, path)
			continue
		}

		var found []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != path && filepath.Base(p)[0] == '.' {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && want[filepath.Ext(p)] {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
