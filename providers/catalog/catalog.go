package catalog

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// LanguageInfo captures metadata about a language provider.
type LanguageInfo struct {
	ID         string
	Extensions []string
}

var (
	mu     sync.RWMutex
	byLang = make(map[string]LanguageInfo)
	byExt  = make(map[string]LanguageInfo)
)

// Register stores language metadata for extension lookups. Registering the
// same language again replaces its extensions.
func Register(info LanguageInfo) {
	if info.ID == "" {
		return
	}

	normalized := uniqueExtensions(info.Extensions)
	info.Extensions = normalized

	mu.Lock()
	defer mu.Unlock()

	id := strings.ToLower(info.ID)
	if prev, ok := byLang[id]; ok {
		for _, ext := range prev.Extensions {
			delete(byExt, ext)
		}
	}
	byLang[id] = info
	for _, ext := range normalized {
		byExt[ext] = info
	}
}

// LookupByExtension returns the language info associated with a file extension.
func LookupByExtension(ext string) (LanguageInfo, bool) {
	mu.RLock()
	defer mu.RUnlock()
	info, ok := byExt[normalize(ext)]
	return info, ok
}

// LookupByPath resolves a file path to its language. Gemfile-style names
// without an extension are matched by their base name.
func LookupByPath(path string) (LanguageInfo, bool) {
	if info, ok := LookupByExtension(filepath.Ext(path)); ok {
		return info, true
	}
	return LookupByExtension(filepath.Base(path))
}

// Languages returns all registered language infos sorted by language ID.
func Languages() []LanguageInfo {
	mu.RLock()
	defer mu.RUnlock()

	infos := make([]LanguageInfo, 0, len(byLang))
	for _, info := range byLang {
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

func normalize(ext string) string {
	n := strings.ToLower(strings.TrimSpace(ext))
	if n == "" {
		return ""
	}
	if !strings.HasPrefix(n, ".") {
		n = "." + n
	}
	return n
}

func uniqueExtensions(exts []string) []string {
	seen := make(map[string]struct{})
	result := make([]string, 0, len(exts))
	for _, ext := range exts {
		normalized := normalize(ext)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}
