package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/oxhq/rulefx/providers/catalog"
	"github.com/oxhq/rulefx/source"
	"github.com/oxhq/rulefx/syntax"
)

// Provider turns source text of one language into a syntax tree.
type Provider interface {
	// Metadata
	Language() string
	Extensions() []string

	// Parse builds the tree for buf. Implementations must be safe for
	// concurrent use.
	Parse(ctx context.Context, buf *source.Buffer) (*syntax.Tree, error)

	// Observability
	Stats() Stats
}

// ParseError marks a file the parser could not turn into a tree.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Registry manages all providers
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider and records its extensions in the catalog.
func (r *Registry) Register(provider Provider) {
	r.providers[provider.Language()] = provider
	catalog.Register(catalog.LanguageInfo{
		ID:         provider.Language(),
		Extensions: provider.Extensions(),
	})
}

// Get retrieves provider by language
func (r *Registry) Get(language string) (Provider, bool) {
	p, exists := r.providers[language]
	return p, exists
}

// ForPath resolves the provider responsible for a file by its extension.
func (r *Registry) ForPath(path string) (Provider, bool) {
	info, ok := catalog.LookupByPath(path)
	if !ok {
		return nil, false
	}
	return r.Get(info.ID)
}

// Languages returns all registered language identifiers, sorted.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.providers))
	for k := range r.providers {
		langs = append(langs, k)
	}
	sort.Strings(langs)
	return langs
}

// Stats captures parser-pool level metrics exposed by providers.
type Stats struct {
	BorrowCount int64 `json:"borrow_count"`
	ReturnCount int64 `json:"return_count"`
	Active      int64 `json:"active"`
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
}
