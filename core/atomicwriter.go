package core

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AtomicWriteConfig controls how corrected files reach the disk.
type AtomicWriteConfig struct {
	UseFsync    bool          // Force fsync before the rename
	LockTimeout time.Duration // Max time to wait for another writer
	TempSuffix  string        // Suffix of the temporary file next to the target
	Backup      bool          // Keep the previous content as <path>.bak
}

// DefaultAtomicConfig returns the settings used by the CLI.
func DefaultAtomicConfig() AtomicWriteConfig {
	return AtomicWriteConfig{
		LockTimeout: 5 * time.Second,
		TempSuffix:  ".rulefx.tmp",
	}
}

// ErrLockTimeout is returned when another writer holds a file for longer
// than the configured timeout.
var ErrLockTimeout = errors.New("timeout waiting for file lock")

// AtomicWriter replaces files through a temporary file and a rename, so a
// reader never sees a half-written file. A <path>.lock file holding the
// writer's pid keeps concurrent rulefx processes apart.
type AtomicWriter struct {
	config AtomicWriteConfig

	mu    sync.Mutex
	locks map[string]*os.File
}

// NewAtomicWriter creates a new atomic writer
func NewAtomicWriter(config AtomicWriteConfig) *AtomicWriter {
	if config.TempSuffix == "" {
		config.TempSuffix = DefaultAtomicConfig().TempSuffix
	}
	return &AtomicWriter{
		config: config,
		locks:  make(map[string]*os.File),
	}
}

// WriteFile replaces the content of path, keeping its permissions.
func (aw *AtomicWriter) WriteFile(path, content string) error {
	if err := aw.lock(path); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer aw.unlock(path)

	mode := os.FileMode(0o644)
	info, statErr := os.Stat(path)
	if statErr == nil {
		mode = info.Mode().Perm()
		if aw.config.Backup {
			if err := copyFile(path, path+".bak", mode); err != nil {
				return fmt.Errorf("backup %s: %w", path, err)
			}
		}
	}

	tempPath := path + aw.config.TempSuffix
	if err := aw.writeTemp(tempPath, content, mode); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename %s: %w", tempPath, err)
	}
	return nil
}

func (aw *AtomicWriter) writeTemp(tempPath, content string, mode os.FileMode) error {
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if aw.config.UseFsync {
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("sync temp file: %w", err)
		}
	}
	return f.Close()
}

func (aw *AtomicWriter) lock(path string) error {
	lockPath := path + ".lock"
	deadline := time.Now().Add(aw.config.LockTimeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			aw.mu.Lock()
			aw.locks[path] = f
			aw.mu.Unlock()
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("create lock file: %w", err)
		}
		if lockStale(lockPath) {
			os.Remove(lockPath)
			continue
		}
		if !time.Now().Before(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (aw *AtomicWriter) unlock(path string) {
	aw.mu.Lock()
	f, ok := aw.locks[path]
	delete(aw.locks, path)
	aw.mu.Unlock()
	if !ok {
		return
	}
	f.Close()
	os.Remove(path + ".lock")
}

// lockStale reports whether the pid recorded in a lock file is gone.
func lockStale(lockPath string) bool {
	content, err := os.ReadFile(lockPath)
	if err != nil {
		return true
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		// The owner has not written its pid yet.
		return false
	}
	pid, err := strconv.Atoi(text)
	if err != nil {
		return true
	}
	return !isProcessAlive(pid)
}

// Cleanup releases every lock still held.
func (aw *AtomicWriter) Cleanup() {
	aw.mu.Lock()
	paths := make([]string, 0, len(aw.locks))
	for path := range aw.locks {
		paths = append(paths, path)
	}
	aw.mu.Unlock()

	for _, path := range paths {
		aw.unlock(path)
	}
}

func copyFile(src, dst string, mode os.FileMode) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, content, mode)
}
