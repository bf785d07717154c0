package base

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oxhq/rulefx/providers"
	"github.com/oxhq/rulefx/source"
	"github.com/oxhq/rulefx/syntax"
)

// LanguageConfig defines language-specific behavior that must be implemented
type LanguageConfig interface {
	// Metadata
	Language() string
	Extensions() []string
	GetLanguage() *sitter.Language

	// MapNodeKind classifies a grammar node type into the typed tree.
	MapNodeKind(nodeType string, named bool) syntax.Kind
	// FieldNames lists the grammar fields carried over as child roles.
	FieldNames() []string
}

// Provider provides common functionality for all language providers
type Provider struct {
	config LanguageConfig
	lang   *sitter.Language
	pool   sync.Pool
	cache  *TreeCache

	borrowCount atomic.Int64
	returnCount atomic.Int64
	activeCount atomic.Int64
}

// New creates a base provider with language-specific config
func New(config LanguageConfig) *Provider {
	lang := config.GetLanguage()
	if lang == nil {
		panic(fmt.Sprintf("Failed to load %s language for tree-sitter", config.Language()))
	}

	p := &Provider{
		config: config,
		lang:   lang,
		cache:  GlobalCache,
	}
	p.pool.New = func() any {
		parser := sitter.NewParser()
		parser.SetLanguage(lang)
		return parser
	}
	return p
}

// WithCache swaps the tree cache. A nil cache disables caching.
func (p *Provider) WithCache(cache *TreeCache) *Provider {
	p.cache = cache
	return p
}

// Language returns language identifier
func (p *Provider) Language() string {
	return p.config.Language()
}

// Extensions returns supported file extensions
func (p *Provider) Extensions() []string {
	return p.config.Extensions()
}

// Parse builds the typed tree for buf, reusing a cached tree for identical
// input.
func (p *Provider) Parse(ctx context.Context, buf *source.Buffer) (*syntax.Tree, error) {
	if p.cache == nil {
		return p.parse(ctx, buf)
	}
	return p.cache.GetOrBuild(buf, func() (*syntax.Tree, error) {
		return p.parse(ctx, buf)
	})
}

func (p *Provider) parse(ctx context.Context, buf *source.Buffer) (*syntax.Tree, error) {
	if !utf8.ValidString(buf.Text()) {
		return nil, &providers.ParseError{File: buf.Name(), Err: fmt.Errorf("source is not valid UTF-8")}
	}

	parser := p.borrowParser()
	defer p.returnParser(parser)

	src := buf.Bytes()
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &providers.ParseError{File: buf.Name(), Err: err}
	}
	if tree == nil {
		return nil, &providers.ParseError{File: buf.Name(), Err: fmt.Errorf("parser returned no tree")}
	}
	defer tree.Close()

	root := p.convert(tree.RootNode(), src)
	return syntax.NewTree(root, buf), nil
}

func (p *Provider) borrowParser() *sitter.Parser {
	p.borrowCount.Add(1)
	p.activeCount.Add(1)
	return p.pool.Get().(*sitter.Parser)
}

func (p *Provider) returnParser(parser *sitter.Parser) {
	parser.Reset()
	p.pool.Put(parser)
	p.returnCount.Add(1)
	p.activeCount.Add(-1)
}

// convert copies the concrete tree into syntax nodes. The sitter tree is
// released after parsing, so nothing here may retain sitter values.
func (p *Provider) convert(node *sitter.Node, src []byte) *syntax.Node {
	kind := syntax.KindError
	if !node.IsError() && !node.IsMissing() {
		kind = p.config.MapNodeKind(node.Type(), node.IsNamed())
	}

	r := source.Range{Start: int(node.StartByte()), End: int(node.EndByte())}
	count := int(node.ChildCount())
	if count == 0 {
		n := syntax.Leaf(kind, node.Type(), r, node.Content(src))
		n.Named = node.IsNamed()
		return n
	}

	fields := p.fieldsOf(node)
	children := make([]*syntax.Node, 0, count)
	for i := 0; i < count; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		converted := p.convert(child, src)
		converted.Field = fields[fieldKey(child)]
		children = append(children, converted)
	}

	n := syntax.New(kind, node.Type(), r, children...)
	n.Named = node.IsNamed()
	return n
}

type childKey struct {
	start, end uint32
	typ        string
}

func fieldKey(n *sitter.Node) childKey {
	return childKey{start: n.StartByte(), end: n.EndByte(), typ: n.Type()}
}

func (p *Provider) fieldsOf(node *sitter.Node) map[childKey]string {
	fields := make(map[childKey]string)
	for _, name := range p.config.FieldNames() {
		child := node.ChildByFieldName(name)
		if child == nil {
			continue
		}
		key := fieldKey(child)
		if _, taken := fields[key]; !taken {
			fields[key] = name
		}
	}
	return fields
}

// Stats reports parser pool and cache counters.
func (p *Provider) Stats() providers.Stats {
	stats := providers.Stats{
		BorrowCount: p.borrowCount.Load(),
		ReturnCount: p.returnCount.Load(),
		Active:      p.activeCount.Load(),
	}
	if p.cache != nil {
		stats.CacheHits, stats.CacheMisses = p.cache.Counts()
	}
	return stats
}
