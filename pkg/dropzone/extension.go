package dropzone

import (
	"path/filepath"
	"strings"
)

// ExtensionPolicy decides whether a dropped file may be uploaded.
type ExtensionPolicy interface {
	Allowed(filename string) bool
}

// ExtensionFunc adapts a predicate to ExtensionPolicy.
type ExtensionFunc func(filename string) bool

// Allowed calls f.
func (f ExtensionFunc) Allowed(filename string) bool {
	return f(filename)
}

// DefaultExtensions are the document formats the conversion backend accepts.
var DefaultExtensions = []string{
	"doc", "docx", "odt", "rtf",
	"ppt", "pptx", "odp",
	"xls", "xlsx", "ods",
}

// AllowList accepts files whose extension is in a fixed set.
type AllowList struct {
	exts          map[string]struct{}
	caseSensitive bool
}

// NewAllowList builds an allow-list. Extensions may be given with or
// without the leading dot. Matching ignores case unless caseSensitive is set.
func NewAllowList(caseSensitive bool, exts ...string) *AllowList {
	a := &AllowList{
		exts:          make(map[string]struct{}, len(exts)),
		caseSensitive: caseSensitive,
	}
	for _, ext := range exts {
		ext = a.normalize(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		a.exts[ext] = struct{}{}
	}
	return a
}

// Allowed reports whether filename carries an accepted extension.
func (a *AllowList) Allowed(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return false
	}
	_, ok := a.exts[a.normalize(ext)]
	return ok
}

// Extensions returns the accepted extensions without dots.
func (a *AllowList) Extensions() []string {
	out := make([]string, 0, len(a.exts))
	for ext := range a.exts {
		out = append(out, ext)
	}
	return out
}

func (a *AllowList) normalize(ext string) string {
	if a.caseSensitive {
		return ext
	}
	return strings.ToLower(ext)
}
