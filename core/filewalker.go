package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oxhq/rulefx/providers/catalog"
)

// FileWalker discovers source files under a root in parallel.
type FileWalker struct {
	workers    int
	bufferSize int
}

// NewFileWalker creates a walker sized for I/O bound work.
func NewFileWalker() *FileWalker {
	return &FileWalker{
		workers:    runtime.NumCPU() * 2,
		bufferSize: 1000,
	}
}

// WalkResult represents a discovered file
type WalkResult struct {
	Path     string
	Info     fs.FileInfo
	Language string
	Error    error
}

// Walk streams the files under scope.Path that match its patterns. Files
// whose language is not in the catalog are skipped unless scope.Language
// forces one.
func (fw *FileWalker) Walk(ctx context.Context, scope FileScope) (<-chan WalkResult, error) {
	if err := fw.validateScope(scope); err != nil {
		return nil, err
	}

	results := make(chan WalkResult, fw.bufferSize)
	paths := make(chan string, fw.bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < fw.workers; i++ {
		wg.Add(1)
		go fw.worker(ctx, paths, results, scope, &wg)
	}

	go func() {
		defer close(paths)
		s := &scan{scope: scope, paths: paths}
		if scope.FollowSymlinks {
			s.visited = make(map[string]struct{})
			s.markVisited(scope.Path)
		}
		s.directory(ctx, scope.Path, 0)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results, nil
}

func (fw *FileWalker) worker(
	ctx context.Context,
	paths <-chan string,
	results chan<- WalkResult,
	scope FileScope,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-paths:
			if !ok {
				return
			}
			result, ok := fw.processFile(path, scope)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case results <- result:
			}
		}
	}
}

// scan is the state of one directory traversal.
type scan struct {
	scope     FileScope
	paths     chan<- string
	processed int
	visited   map[string]struct{}
}

// markVisited records the resolved form of dir and reports whether it was
// new.
func (s *scan) markVisited(dir string) bool {
	key := dir
	if resolved, err := filepath.EvalSymlinks(dir); err == nil && resolved != "" {
		key = resolved
	}
	if _, seen := s.visited[key]; seen {
		return false
	}
	s.visited[key] = struct{}{}
	return true
}

func (s *scan) full() bool {
	return s.scope.MaxFiles > 0 && s.processed >= s.scope.MaxFiles
}

func (s *scan) directory(ctx context.Context, dir string, depth int) {
	if s.full() || ctx.Err() != nil {
		return
	}
	if s.scope.MaxDepth > 0 && depth > s.scope.MaxDepth {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		fullPath := filepath.Join(dir, entry.Name())
		if matchAny(s.relative(fullPath), fullPath, s.scope.Exclude) {
			continue
		}

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			if !s.scope.FollowSymlinks {
				continue
			}
			info, err := os.Stat(fullPath)
			if err != nil {
				continue
			}
			isDir = info.IsDir()
		}

		if isDir {
			if s.visited != nil && !s.markVisited(fullPath) {
				continue
			}
			s.directory(ctx, fullPath, depth+1)
			continue
		}

		if len(s.scope.Include) > 0 && !matchAny(s.relative(fullPath), fullPath, s.scope.Include) {
			continue
		}
		if s.scope.Language == "" {
			if _, known := catalog.LookupByPath(fullPath); !known {
				continue
			}
		}
		if s.full() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case s.paths <- fullPath:
			s.processed++
		}
	}
}

func (s *scan) relative(path string) string {
	rel, err := filepath.Rel(s.scope.Path, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (fw *FileWalker) processFile(path string, scope FileScope) (WalkResult, bool) {
	language := scope.Language
	if language == "" {
		info, ok := catalog.LookupByPath(path)
		if !ok {
			return WalkResult{}, false
		}
		language = info.ID
	}

	info, err := os.Stat(path)
	if err != nil {
		return WalkResult{Path: path, Language: language, Error: err}, true
	}
	return WalkResult{Path: path, Info: info, Language: language}, true
}

// matchAny reports whether any pattern matches the path relative to the
// walk root, the full path or, for patterns without a separator, the base
// name.
func matchAny(rel, full string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.PathMatch(pattern, full); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, filepath.Base(full)); ok {
				return true
			}
		}
	}
	return false
}

func (fw *FileWalker) validateScope(scope FileScope) error {
	if scope.Path == "" {
		return fmt.Errorf("path is required")
	}
	for _, pattern := range append(append([]string(nil), scope.Include...), scope.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid pattern %q", pattern)
		}
	}

	info, err := os.Stat(scope.Path)
	if err != nil {
		return fmt.Errorf("cannot access path %s: %w", scope.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", scope.Path)
	}
	return nil
}

// Files collects the discovered paths in lexical order.
func (fw *FileWalker) Files(ctx context.Context, scope FileScope) ([]WalkResult, error) {
	results, err := fw.Walk(ctx, scope)
	if err != nil {
		return nil, err
	}

	var files []WalkResult
	for result := range results {
		files = append(files, result)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// LanguageStats counts discovered files by language.
func (fw *FileWalker) LanguageStats(ctx context.Context, scope FileScope) (map[string]int, error) {
	files, err := fw.Files(ctx, scope)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int)
	for _, f := range files {
		if f.Error == nil {
			stats[f.Language]++
		}
	}
	return stats, nil
}
