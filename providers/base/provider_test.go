package base

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/rulefx/providers"
	"github.com/oxhq/rulefx/source"
	"github.com/oxhq/rulefx/syntax"
)

// mockConfig implements LanguageConfig for testing with a minimal mapping.
type mockConfig struct{}

func (m *mockConfig) Language() string              { return "mock-ruby" }
func (m *mockConfig) Extensions() []string          { return []string{".mrb"} }
func (m *mockConfig) GetLanguage() *sitter.Language { return ruby.GetLanguage() }
func (m *mockConfig) FieldNames() []string          { return []string{"left", "operator", "right"} }

func (m *mockConfig) MapNodeKind(nodeType string, named bool) syntax.Kind {
	if !named {
		return syntax.KindToken
	}
	switch nodeType {
	case "program":
		return syntax.KindProgram
	case "binary":
		return syntax.KindBinary
	case "identifier":
		return syntax.KindIdentifier
	case "nil":
		return syntax.KindNil
	}
	return syntax.KindUnknown
}

func newTestProvider() *Provider {
	return New(&mockConfig{}).WithCache(NewTreeCache(time.Minute, 0))
}

func TestNew(t *testing.T) {
	provider := New(&mockConfig{})
	require.NotNil(t, provider)
	assert.Equal(t, "mock-ruby", provider.Language())
	assert.Equal(t, []string{".mrb"}, provider.Extensions())
	assert.Same(t, GlobalCache, provider.cache)
}

func TestParse_ConvertsFieldsAndText(t *testing.T) {
	provider := newTestProvider()
	buf := source.NewBuffer("cmp.mrb", "x != nil\n")

	tree, err := provider.Parse(context.Background(), buf)
	require.NoError(t, err)
	require.Equal(t, syntax.KindProgram, tree.Root.Kind)
	assert.Zero(t, tree.Errors)

	bins := syntax.Find(tree.Root, func(n *syntax.Node) bool { return n.Kind == syntax.KindBinary })
	require.Len(t, bins, 1)

	b, ok := syntax.AsBinary(bins[0])
	require.True(t, ok)
	assert.Equal(t, "!=", b.Op)
	assert.Equal(t, "x", b.Left.Text)
	assert.Equal(t, syntax.KindNil, b.Right.Kind)
	assert.False(t, b.Operator.Named)
	assert.Equal(t, source.Range{Start: 2, End: 4}, b.Operator.Range)
	assert.Same(t, bins[0], b.Left.Parent())
}

func TestParse_CountsErrors(t *testing.T) {
	provider := newTestProvider()
	tree, err := provider.Parse(context.Background(), source.NewBuffer("bad.mrb", "def (\n"))
	require.NoError(t, err)
	assert.Positive(t, tree.Errors)
}

func TestParse_RejectsInvalidUTF8(t *testing.T) {
	provider := newTestProvider()
	_, err := provider.Parse(context.Background(), source.NewBuffer("bin.mrb", "x = \"\xff\""))

	var perr *providers.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bin.mrb", perr.File)
}

func TestParse_CachesByNameAndContent(t *testing.T) {
	provider := newTestProvider()
	ctx := context.Background()

	first, err := provider.Parse(ctx, source.NewBuffer("a.mrb", "x != nil"))
	require.NoError(t, err)
	second, err := provider.Parse(ctx, source.NewBuffer("a.mrb", "x != nil"))
	require.NoError(t, err)
	other, err := provider.Parse(ctx, source.NewBuffer("b.mrb", "x != nil"))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)

	stats := provider.Stats()
	assert.EqualValues(t, 1, stats.CacheHits)
	assert.EqualValues(t, 2, stats.CacheMisses)
}

func TestParse_PoolCountersBalance(t *testing.T) {
	provider := New(&mockConfig{}).WithCache(nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := provider.Parse(context.Background(), source.NewBuffer("p.mrb", "a != nil"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats := provider.Stats()
	assert.EqualValues(t, 16, stats.BorrowCount)
	assert.EqualValues(t, 16, stats.ReturnCount)
	assert.Zero(t, stats.Active)
}

func TestTreeCache_SkipsFailedBuilds(t *testing.T) {
	cache := NewTreeCache(time.Minute, 0)
	buf := source.NewBuffer("e.mrb", "x")
	boom := errors.New("boom")

	_, err := cache.GetOrBuild(buf, func() (*syntax.Tree, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	calls := 0
	build := func() (*syntax.Tree, error) {
		calls++
		return syntax.NewTree(syntax.New(syntax.KindProgram, "program", source.Range{}), buf), nil
	}
	_, err = cache.GetOrBuild(buf, build)
	require.NoError(t, err)
	_, err = cache.GetOrBuild(buf, build)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.EqualValues(t, 1, cache.Stats()["hits"])
}

func TestTreeCache_EvictsOldestPastLimit(t *testing.T) {
	cache := NewTreeCache(time.Minute, 8)
	build := func() (*syntax.Tree, error) { return &syntax.Tree{}, nil }

	first, err := cache.GetOrBuild(source.NewBuffer("f0.mrb", "x"), build)
	require.NoError(t, err)
	for i := 1; i <= 8; i++ {
		time.Sleep(time.Millisecond)
		_, err := cache.GetOrBuild(source.NewBuffer(fmt.Sprintf("f%d.mrb", i), "x"), build)
		require.NoError(t, err)
	}

	assert.Equal(t, 6, cache.Len())
	assert.EqualValues(t, 3, cache.Stats()["evictions"])

	again, err := cache.GetOrBuild(source.NewBuffer("f0.mrb", "x"), build)
	require.NoError(t, err)
	assert.NotSame(t, first, again)

	newest, err := cache.GetOrBuild(source.NewBuffer("f8.mrb", "x"), build)
	require.NoError(t, err)
	hits, _ := cache.Counts()
	assert.EqualValues(t, 1, hits)
	assert.NotNil(t, newest)
}
