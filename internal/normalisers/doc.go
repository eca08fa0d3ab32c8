// Package normalisers provides the registry that routes files to the
// Normaliser for their declared type. Each subpackage knows how to extract
// text content from one family of formats.
//
// Normalisers are registered with the Registry at startup.
package normalisers

import (
	"path/filepath"
	"strings"
)

// TitleFromFilename derives a human-readable title from a file path.
func TitleFromFilename(path string) string {
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
