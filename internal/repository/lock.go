package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// StaleLockAge is how long a lock may be held before another process may take it over.
const StaleLockAge = 4 * time.Hour

// LockFile is the metadata stored in the call lock file.
type LockFile struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Owner     string    `json:"owner"`      // e.g. "interview-call"
	SessionID string    `json:"session_id"` // call session holding the lock, if known
	Timestamp time.Time `json:"timestamp"`
}

// FileLock makes a single process the owner of the call provider session.
// The lock is an flock on the file plus JSON metadata for diagnostics.
type FileLock struct {
	path  string
	file  *os.File
	owner string
}

// NewFileLock creates a new file lock.
func NewFileLock(path, owner string) *FileLock {
	return &FileLock{
		path:  path,
		owner: owner,
	}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// Acquire attempts to acquire the file lock with stale detection.
func (l *FileLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	// Try exclusive lock (non-blocking)
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		// The lock was never taken, only the descriptor is released
		_ = file.Close()

		existing, readErr := l.readLockFile()
		if readErr == nil && l.isStale(existing) {
			return l.stealLock()
		}

		if readErr == nil {
			age := time.Since(existing.Timestamp).Round(time.Second)
			return fmt.Errorf("call session locked by %s (PID %d, %v ago)",
				existing.Owner, existing.PID, age)
		}

		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.file = file
	return l.writeMetadata("")
}

// SetSession records the session currently holding the lock.
func (l *FileLock) SetSession(sessionID string) error {
	if l.file == nil {
		return fmt.Errorf("lock not held")
	}
	return l.writeMetadata(sessionID)
}

// Holder returns the metadata of the current lock holder.
func (l *FileLock) Holder() (*LockFile, error) {
	return l.readLockFile()
}

// Release releases the file lock.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}

	var errs []error
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		errs = append(errs, fmt.Errorf("release flock: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close lock file: %w", err))
	}
	l.file = nil

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove lock file: %w", err))
	}
	return errors.Join(errs...)
}

func (l *FileLock) writeMetadata(sessionID string) error {
	hostname, _ := os.Hostname()
	lockData := LockFile{
		PID:       os.Getpid(),
		Hostname:  hostname,
		Owner:     l.owner,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}

	data, _ := json.MarshalIndent(lockData, "", "  ")
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := l.file.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("write lock metadata: %w", err)
	}

	return nil
}

// readLockFile reads the current lock metadata.
func (l *FileLock) readLockFile() (*LockFile, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}

	var lock LockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}

	return &lock, nil
}

// isStale checks if a lock is stale (process dead or older than StaleLockAge).
func (l *FileLock) isStale(lock *LockFile) bool {
	process, err := os.FindProcess(lock.PID)
	if err != nil {
		return true
	}

	// On Unix, FindProcess always succeeds, so we need to signal to check
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return true
	}

	return time.Since(lock.Timestamp) > StaleLockAge
}

// stealLock forcibly steals a stale lock.
func (l *FileLock) stealLock() error {
	// Remove stale lock file (best-effort, ignore error)
	_ = os.Remove(l.path)

	return l.Acquire()
}
