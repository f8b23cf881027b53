// Package imagefile classifies paths as uploadable images by extension.
package imagefile

import (
	"path/filepath"
	"strings"
)

// Filter reports whether file names carry an accepted image extension.
// Matching is case-insensitive and looks only at the final extension.
type Filter struct {
	extensions map[string]struct{}
}

// NewFilter builds a filter from the accepted extensions. Extensions are
// expected in normalized form (lowercase, leading dot), as produced by the
// config package.
func NewFilter(extensions []string) *Filter {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		set[normalized] = struct{}{}
	}
	return &Filter{extensions: set}
}

// Allows reports whether the path names an eligible image file.
func (f *Filter) Allows(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	_, ok := f.extensions[ext]
	return ok
}
