package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"intervoice/pkg/schema"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Collection directories under the data directory.
const (
	feedbackDir   = "feedback"
	callsDir      = "calls"
	interviewsDir = "interviews"
)

// Repository stores feedback, call records and interview definitions as YAML files.
// Each record file is replaced atomically, so concurrent writers never expose a partial record.
type Repository struct {
	baseDir string
}

// NewRepository creates a new repository rooted at baseDir.
func NewRepository(baseDir string) *Repository {
	return &Repository{baseDir: baseDir}
}

// BaseDir returns the data directory.
func (r *Repository) BaseDir() string {
	return r.baseDir
}

// SweepStaged removes abandoned staging files from every collection and returns how many it removed.
func (r *Repository) SweepStaged(olderThan time.Duration) (int, error) {
	total := 0
	for _, collection := range []string{feedbackDir, callsDir, interviewsDir} {
		n, err := SweepStaged(filepath.Join(r.baseDir, collection), olderThan)
		total += n
		if err != nil {
			return total, fmt.Errorf("sweep %s: %w", collection, err)
		}
	}
	return total, nil
}

// Close is a no-op; it lets Repository satisfy Store.
func (r *Repository) Close() error {
	return nil
}

// SaveFeedback writes fb, replacing any existing feedback with the same ID.
func (r *Repository) SaveFeedback(ctx context.Context, fb *schema.Feedback) error {
	if fb.ID == "" {
		return fmt.Errorf("feedback id is required")
	}
	return r.writeRecord(ctx, feedbackDir, fb.ID, fb)
}

// GetFeedback reads feedback by ID.
func (r *Repository) GetFeedback(ctx context.Context, id string) (*schema.Feedback, error) {
	var fb schema.Feedback
	if err := r.readRecord(ctx, feedbackDir, id, &fb); err != nil {
		return nil, err
	}
	return &fb, nil
}

// FindFeedback returns the latest feedback for an interview attempt by a user.
func (r *Repository) FindFeedback(ctx context.Context, interviewID, userID string) (*schema.Feedback, error) {
	var all []*schema.Feedback
	err := r.scan(ctx, feedbackDir, func(data []byte) error {
		var fb schema.Feedback
		if err := yaml.Unmarshal(data, &fb); err != nil {
			return err
		}
		if fb.InterviewID == interviewID && fb.UserID == userID {
			all = append(all, &fb)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all[0], nil
}

// SaveCallRecord archives a finished call.
func (r *Repository) SaveCallRecord(ctx context.Context, rec *schema.CallRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	return r.writeRecord(ctx, callsDir, rec.SessionID, rec)
}

// GetCallRecord reads an archived call by session ID.
func (r *Repository) GetCallRecord(ctx context.Context, sessionID string) (*schema.CallRecord, error) {
	var rec schema.CallRecord
	if err := r.readRecord(ctx, callsDir, sessionID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveInterview validates and writes an interview definition.
func (r *Repository) SaveInterview(ctx context.Context, iv *schema.Interview) error {
	if err := schema.ValidateInterview(iv); err != nil {
		return fmt.Errorf("invalid interview: %w", err)
	}
	return r.writeRecord(ctx, interviewsDir, iv.ID, iv)
}

// LoadInterview reads an interview definition by ID.
func (r *Repository) LoadInterview(ctx context.Context, id string) (*schema.Interview, error) {
	var iv schema.Interview
	if err := r.readRecord(ctx, interviewsDir, id, &iv); err != nil {
		return nil, err
	}
	if iv.ID == "" {
		iv.ID = id
	}
	return &iv, nil
}

// LoadInterviewFile reads an interview definition from a standalone YAML file.
func LoadInterviewFile(path string) (*schema.Interview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interview: %w", err)
	}

	var iv schema.Interview
	if err := yaml.Unmarshal(data, &iv); err != nil {
		return nil, fmt.Errorf("parse interview: %w", err)
	}
	if err := schema.ValidateInterview(&iv); err != nil {
		return nil, fmt.Errorf("invalid interview %s: %w", path, err)
	}

	return &iv, nil
}

func (r *Repository) writeRecord(ctx context.Context, collection, id string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := recordFile(id)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collection, err)
	}

	tx, err := BeginRecord(filepath.Join(r.baseDir, collection), name)
	if err != nil {
		return fmt.Errorf("begin %s write: %w", collection, err)
	}
	if err := tx.Write(data); err != nil {
		return errors.Join(fmt.Errorf("write %s: %w", collection, err), tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", collection, err)
	}

	return nil
}

func (r *Repository) readRecord(ctx context.Context, collection, id string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := recordFile(id)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(r.baseDir, collection, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", collection, err)
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s %s: %w", collection, id, err)
	}
	return nil
}

func (r *Repository) scan(ctx context.Context, collection string, fn func(data []byte) error) error {
	dir := filepath.Join(r.baseDir, collection)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", collection, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if err := fn(data); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// recordFile maps an ID to its file name, rejecting IDs that would escape the collection.
func recordFile(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid record id %q", id)
	}
	return id + ".yaml", nil
}
