package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// tempMarker separates a record name from the unique suffix of its staging file.
// Staging files never end in .yaml, so collection scans skip them.
const tempMarker = ".tmp."

var stagingSeq atomic.Uint64

// RecordTx replaces one record file atomically.
// The new content is staged in a temp file inside the collection directory and
// renamed over the record on Commit, so readers see either the old record or the new one.
type RecordTx struct {
	dir       string   // Collection directory, e.g. .intervoice/feedback
	name      string   // Record file name, e.g. FB-abc.yaml
	temp      *os.File // Staging file in dir
	committed bool
	closed    bool
}

// BeginRecord creates the collection directory if needed and opens a staging file for name.
func BeginRecord(dir, name string) (*RecordTx, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create collection directory: %w", err)
	}

	suffix := fmt.Sprintf("%d.%d.%d", os.Getpid(), time.Now().UnixNano(), stagingSeq.Add(1))
	f, err := os.OpenFile(filepath.Join(dir, "."+name+tempMarker+suffix), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}

	return &RecordTx{dir: dir, name: name, temp: f}, nil
}

// Write appends content to the staged record.
func (tx *RecordTx) Write(content []byte) error {
	if tx.committed || tx.closed {
		return fmt.Errorf("transaction already finished")
	}
	if _, err := tx.temp.Write(content); err != nil {
		return fmt.Errorf("write staging file: %w", err)
	}
	return nil
}

// Commit flushes the staged record to disk and renames it over the record file.
// On failure the staging file is removed and the previous record is left untouched.
func (tx *RecordTx) Commit() error {
	if tx.committed {
		return fmt.Errorf("transaction already committed")
	}
	if tx.closed {
		return fmt.Errorf("transaction rolled back")
	}

	tempPath := tx.temp.Name()
	if err := tx.temp.Sync(); err != nil {
		return errors.Join(fmt.Errorf("sync staging file: %w", err), tx.Rollback())
	}
	tx.closed = true
	if err := tx.temp.Close(); err != nil {
		return errors.Join(fmt.Errorf("close staging file: %w", err), removeStaged(tempPath))
	}

	if err := os.Rename(tempPath, tx.Path()); err != nil {
		return errors.Join(fmt.Errorf("replace record: %w", err), removeStaged(tempPath))
	}
	tx.committed = true

	// Persist the rename itself
	if d, err := os.Open(tx.dir); err == nil {
		syncErr := d.Sync()
		_ = d.Close()
		if syncErr != nil {
			return fmt.Errorf("sync collection directory: %w", syncErr)
		}
	}
	return nil
}

// Rollback discards the staged record.
func (tx *RecordTx) Rollback() error {
	if tx.committed {
		return fmt.Errorf("cannot rollback committed transaction")
	}
	if tx.closed {
		return nil
	}
	tx.closed = true

	closeErr := tx.temp.Close()
	if err := removeStaged(tx.temp.Name()); err != nil {
		return err
	}
	if closeErr != nil {
		return fmt.Errorf("rollback: %w", closeErr)
	}
	return nil
}

// Path returns the final location of the record.
func (tx *RecordTx) Path() string {
	return filepath.Join(tx.dir, tx.name)
}

// SweepStaged removes staging files left in dir by writers that died before committing.
// Only files older than olderThan are removed so in-flight writers are not disturbed.
func SweepStaged(dir string, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read collection directory: %w", err)
	}

	removed := 0
	cutoff := time.Now().Add(-olderThan)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), ".") || !strings.Contains(entry.Name(), tempMarker) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := removeStaged(filepath.Join(dir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func removeStaged(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staging file: %w", err)
	}
	return nil
}
