package core

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/oxhq/rulefx/providers/ruby"
)

func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		writeFile(t, filepath.Join(root, filepath.FromSlash(f)), "# "+f+"\n")
	}
	return root
}

func relPaths(t *testing.T, root string, files []WalkResult) []string {
	t.Helper()
	var out []string
	for _, f := range files {
		require.NoError(t, f.Error)
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestFileWalker_Files(t *testing.T) {
	root := makeTree(t,
		"app/models/user.rb",
		"app/models/post.rb",
		"lib/tasks/db.rake",
		"Gemfile",
		"README.md",
		"vendor/bundle/gem.rb",
	)

	tests := []struct {
		name  string
		scope FileScope
		want  []string
	}{
		{
			name:  "known languages only",
			scope: FileScope{},
			want:  []string{"Gemfile", "app/models/post.rb", "app/models/user.rb", "lib/tasks/db.rake", "vendor/bundle/gem.rb"},
		},
		{
			name:  "exclude directory",
			scope: FileScope{Exclude: []string{"vendor/**"}},
			want:  []string{"Gemfile", "app/models/post.rb", "app/models/user.rb", "lib/tasks/db.rake"},
		},
		{
			name:  "include by base name",
			scope: FileScope{Include: []string{"*.rb"}},
			want:  []string{"app/models/post.rb", "app/models/user.rb", "vendor/bundle/gem.rb"},
		},
		{
			name:  "include by relative path",
			scope: FileScope{Include: []string{"app/**/*.rb"}},
			want:  []string{"app/models/post.rb", "app/models/user.rb"},
		},
		{
			name:  "max depth",
			scope: FileScope{MaxDepth: 1},
			want:  []string{"Gemfile"},
		},
		{
			name:  "max files",
			scope: FileScope{Include: []string{"app/**/*.rb"}, MaxFiles: 1},
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := tt.scope
			scope.Path = root
			files, err := NewFileWalker().Files(context.Background(), scope)
			require.NoError(t, err)
			if scope.MaxFiles > 0 {
				assert.Len(t, files, scope.MaxFiles)
				return
			}
			assert.Equal(t, tt.want, relPaths(t, root, files))
			for _, f := range files {
				assert.Equal(t, "ruby", f.Language)
			}
		})
	}
}

func TestFileWalker_ForcedLanguage(t *testing.T) {
	root := makeTree(t, "script", "notes.txt")
	files, err := NewFileWalker().Files(context.Background(), FileScope{Path: root, Include: []string{"script"}, Language: "ruby"})
	require.NoError(t, err)
	assert.Equal(t, []string{"script"}, relPaths(t, root, files))
}

func TestFileWalker_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := makeTree(t, "real/a.rb")
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")))

	files, err := NewFileWalker().Files(context.Background(), FileScope{Path: root})
	require.NoError(t, err)
	assert.Equal(t, []string{"real/a.rb"}, relPaths(t, root, files))

	files, err = NewFileWalker().Files(context.Background(), FileScope{Path: root, FollowSymlinks: true})
	require.NoError(t, err)
	assert.Len(t, files, 1, "a directory reached twice is walked once")
}

func TestFileWalker_InvalidScope(t *testing.T) {
	root := makeTree(t, "a.rb")
	walker := NewFileWalker()

	_, err := walker.Walk(context.Background(), FileScope{})
	assert.Error(t, err)
	_, err = walker.Walk(context.Background(), FileScope{Path: filepath.Join(root, "missing")})
	assert.Error(t, err)
	_, err = walker.Walk(context.Background(), FileScope{Path: filepath.Join(root, "a.rb")})
	assert.Error(t, err)
	_, err = walker.Walk(context.Background(), FileScope{Path: root, Include: []string{"[a-"}})
	assert.Error(t, err)
}

func TestFileWalker_Cancelled(t *testing.T) {
	root := makeTree(t, "a.rb", "b.rb")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileWalker().Files(ctx, FileScope{Path: root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileWalker_LanguageStats(t *testing.T) {
	root := makeTree(t, "a.rb", "b.rb", "c.md")
	stats, err := NewFileWalker().LanguageStats(context.Background(), FileScope{Path: root})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ruby": 2}, stats)
}
