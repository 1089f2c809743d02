package ejs

import (
	"os"
	"strings"
)

// SourceProvider supplies template text for an identifier. Implementations
// return the raw bytes or an error when the identifier cannot be read.
type SourceProvider interface {
	Load(name string) (string, error)
}

// FileSource reads templates from the filesystem.
type FileSource struct{}

// Load reads the file at path.
func (FileSource) Load(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", NewFetchError(path, err)
	}
	return stripBOM(string(raw)), nil
}

// MapSource serves templates from a static identifier → text map, used for
// embedded distributions and tests.
type MapSource map[string]string

// Load looks the identifier up in the map.
func (m MapSource) Load(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", NewFetchError(name, nil)
	}
	return stripBOM(text), nil
}

// stripBOM removes a leading UTF-8 byte-order marker.
func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\xef\xbb\xbf")
}
