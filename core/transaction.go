package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Transaction states.
const (
	TxPending    = "pending"
	TxCommitted  = "committed"
	TxRolledBack = "rolled_back"
)

var (
	// ErrNoTransaction is returned when an operation needs an open transaction.
	ErrNoTransaction = errors.New("no active transaction")
	// ErrFileChanged is returned when a file changed on disk between
	// analysis and write.
	ErrFileChanged = errors.New("file changed since it was read")
)

// TransactionOperation is one file rewritten inside a transaction.
type TransactionOperation struct {
	FilePath   string    `json:"file_path"`
	BackupPath string    `json:"backup_path"`
	Checksum   string    `json:"checksum"`
	Timestamp  time.Time `json:"timestamp"`
	Completed  bool      `json:"completed"`
	Error      string    `json:"error,omitempty"`
}

// TransactionLog is the on-disk record of one correcting run.
type TransactionLog struct {
	ID          string                 `json:"id"`
	Started     time.Time              `json:"started"`
	Completed   time.Time              `json:"completed"`
	Operations  []TransactionOperation `json:"operations"`
	Status      string                 `json:"status"`
	Description string                 `json:"description"`
}

// TransactionManager journals the files a run rewrites so that a failed
// run can put every one of them back.
type TransactionManager struct {
	logDir string
	writer *AtomicWriter

	mu      sync.Mutex
	current *TransactionLog
}

// NewTransactionManager creates a manager keeping its journal in logDir.
func NewTransactionManager(logDir string, writer *AtomicWriter) *TransactionManager {
	return &TransactionManager{logDir: logDir, writer: writer}
}

// Begin opens a transaction. Only one may be open at a time.
func (tm *TransactionManager) Begin(description string) (*TransactionLog, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.current != nil {
		return nil, fmt.Errorf("transaction already in progress: %s", tm.current.ID)
	}
	if err := os.MkdirAll(tm.logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create transaction dir: %w", err)
	}

	tx := &TransactionLog{
		ID:          uuid.NewString(),
		Started:     time.Now(),
		Operations:  []TransactionOperation{},
		Status:      TxPending,
		Description: description,
	}
	if err := tm.persist(tx); err != nil {
		return nil, fmt.Errorf("write transaction log: %w", err)
	}
	tm.current = tx
	return tx, nil
}

// Record backs up filePath before it is rewritten. When checksum is not
// empty the file on disk must still hash to it.
func (tm *TransactionManager) Record(filePath, checksum string) (*TransactionOperation, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.current == nil {
		return nil, ErrNoTransaction
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	sum := Checksum(string(content))
	if checksum != "" && checksum != sum {
		return nil, fmt.Errorf("%s: %w", filePath, ErrFileChanged)
	}

	backup := tm.backupPath(filePath)
	if err := tm.writeBackup(filePath, backup, content); err != nil {
		return nil, fmt.Errorf("backup %s: %w", filePath, err)
	}

	tm.current.Operations = append(tm.current.Operations, TransactionOperation{
		FilePath:   filePath,
		BackupPath: backup,
		Checksum:   sum,
		Timestamp:  time.Now(),
	})
	if err := tm.persist(tm.current); err != nil {
		return nil, fmt.Errorf("update transaction log: %w", err)
	}
	op := tm.current.Operations[len(tm.current.Operations)-1]
	return &op, nil
}

// Complete marks the pending operation on filePath as done, or failed when
// opErr is not nil.
func (tm *TransactionManager) Complete(filePath string, opErr error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.current == nil {
		return ErrNoTransaction
	}
	for i := range tm.current.Operations {
		op := &tm.current.Operations[i]
		if op.FilePath == filePath && !op.Completed && op.Error == "" {
			if opErr != nil {
				op.Error = opErr.Error()
			} else {
				op.Completed = true
			}
			return tm.persist(tm.current)
		}
	}
	return fmt.Errorf("operation not found for file: %s", filePath)
}

// Commit closes the transaction and drops its backups.
func (tm *TransactionManager) Commit() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.current == nil {
		return ErrNoTransaction
	}
	for _, op := range tm.current.Operations {
		if !op.Completed {
			return fmt.Errorf("cannot commit: %s did not complete", op.FilePath)
		}
	}

	tx := tm.current
	tx.Status = TxCommitted
	tx.Completed = time.Now()
	err := tm.persist(tx)
	tm.current = nil
	for _, op := range tx.Operations {
		os.Remove(op.BackupPath)
	}
	return err
}

// Rollback restores every file the transaction touched, newest first.
func (tm *TransactionManager) Rollback() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.current == nil {
		return ErrNoTransaction
	}

	var failures []string
	ops := tm.current.Operations
	for i := len(ops) - 1; i >= 0; i-- {
		if err := tm.restore(ops[i]); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", ops[i].FilePath, err))
		}
	}

	tm.current.Status = TxRolledBack
	tm.current.Completed = time.Now()
	if err := tm.persist(tm.current); err != nil {
		failures = append(failures, fmt.Sprintf("update transaction log: %v", err))
	}
	tm.current = nil

	if len(failures) > 0 {
		return fmt.Errorf("rollback completed with errors: %s", strings.Join(failures, "; "))
	}
	return nil
}

// restore puts the backup of op back in place. Files whose write never
// started still hold their original content.
func (tm *TransactionManager) restore(op TransactionOperation) error {
	content, err := os.ReadFile(op.BackupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	current, err := os.ReadFile(op.FilePath)
	if err == nil && Checksum(string(current)) == op.Checksum {
		os.Remove(op.BackupPath)
		return nil
	}
	if err := tm.writer.WriteFile(op.FilePath, string(content)); err != nil {
		return err
	}
	os.Remove(op.BackupPath)
	return nil
}

// Load reads a transaction from the journal.
func (tm *TransactionManager) Load(id string) (*TransactionLog, error) {
	data, err := os.ReadFile(filepath.Join(tm.logDir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("read transaction log: %w", err)
	}
	var tx TransactionLog
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("parse transaction log: %w", err)
	}
	return &tx, nil
}

// Pending lists transactions left open by an interrupted run, oldest
// first.
func (tm *TransactionManager) Pending() ([]TransactionLog, error) {
	entries, err := os.ReadDir(tm.logDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var pending []TransactionLog
	for _, entry := range entries {
		id, ok := strings.CutSuffix(entry.Name(), ".json")
		if entry.IsDir() || !ok {
			continue
		}
		tx, err := tm.Load(id)
		if err != nil {
			continue
		}
		if tx.Status == TxPending {
			pending = append(pending, *tx)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Started.Before(pending[j].Started) })
	return pending, nil
}

func (tm *TransactionManager) persist(tx *TransactionLog) error {
	data, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(tm.logDir, tx.ID+".json"), data, 0o644)
}

func (tm *TransactionManager) backupPath(filePath string) string {
	return filepath.Join(filepath.Dir(filePath),
		fmt.Sprintf(".rulefx-backup-%s-%s", filepath.Base(filePath), tm.current.ID))
}

func (tm *TransactionManager) writeBackup(filePath, backup string, content []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(filePath); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(backup, content, mode)
}

// Checksum returns the hex SHA-256 of content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
