// Package batch runs a per-document operation over many MUSE files, keeping
// one bad document from stopping the run.
package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Logger is the logging used by the batch runner.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// IsXML reports whether path ends in .xml, in any case.
func IsXML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

// Discover expands inputs into XML file paths. Files are kept when they end
// in .xml; directories are walked recursively in lexical order. Missing
// inputs and unreadable subdirectories are logged and skipped.
func Discover(inputs []string, log Logger) []string {
	var paths []string
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			log.Warnf("Path not found: %s", input)
			continue
		}

		if !info.IsDir() {
			if IsXML(input) {
				paths = append(paths, input)
			} else {
				log.Debugf("Skipping non-XML file %s", input)
			}
			continue
		}

		_ = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warnf("Cannot read %s: %v", path, err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.IsDir() && IsXML(path) {
				paths = append(paths, path)
			}
			return nil
		})
	}
	return paths
}
