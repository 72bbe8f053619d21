package repository

import (
	"context"
	"fmt"
	"time"

	"intervoice/pkg/schema"
)

// Store is the persistence surface shared by the file and Firestore backends.
type Store interface {
	SaveFeedback(ctx context.Context, fb *schema.Feedback) error
	GetFeedback(ctx context.Context, id string) (*schema.Feedback, error)
	FindFeedback(ctx context.Context, interviewID, userID string) (*schema.Feedback, error)
	SaveCallRecord(ctx context.Context, rec *schema.CallRecord) error
	SaveInterview(ctx context.Context, iv *schema.Interview) error
	LoadInterview(ctx context.Context, id string) (*schema.Interview, error)
	Close() error
}

// staleStaging is how old an uncommitted staging file must be before OpenStore removes it.
const staleStaging = time.Hour

var (
	_ Store = (*Repository)(nil)
	_ Store = (*FirestoreStore)(nil)
)

// OpenStore opens the backend named by kind, "file" or "firestore".
func OpenStore(ctx context.Context, kind, dataDir, projectID, credentialsFile string) (Store, error) {
	switch kind {
	case "file", "":
		repo := NewRepository(dataDir)
		if _, err := repo.SweepStaged(staleStaging); err != nil {
			return nil, fmt.Errorf("clean data directory: %w", err)
		}
		return repo, nil
	case "firestore":
		return NewFirestoreStore(ctx, projectID, credentialsFile)
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}
