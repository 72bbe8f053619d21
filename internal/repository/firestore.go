package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"intervoice/pkg/schema"
)

// Firestore collection names.
const (
	FeedbackCollection   = "feedback"
	CallsCollection      = "calls"
	InterviewsCollection = "interviews"
)

// FirestoreStore keeps the same records as Repository in Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to Firestore through the Firebase Admin SDK.
// With no credentials file, application default credentials are used.
// FIRESTORE_EMULATOR_HOST is honored by the client.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

// NewFirestoreStoreWithClient wraps an existing client.
func NewFirestoreStoreWithClient(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// SaveFeedback writes fb under its ID, replacing any previous assessment.
func (s *FirestoreStore) SaveFeedback(ctx context.Context, fb *schema.Feedback) error {
	if fb.ID == "" {
		return fmt.Errorf("feedback id is required")
	}
	if _, err := s.client.Collection(FeedbackCollection).Doc(fb.ID).Set(ctx, fb); err != nil {
		return fmt.Errorf("save feedback %s: %w", fb.ID, err)
	}
	return nil
}

// GetFeedback reads feedback by ID.
func (s *FirestoreStore) GetFeedback(ctx context.Context, id string) (*schema.Feedback, error) {
	var fb schema.Feedback
	if err := s.get(ctx, FeedbackCollection, id, &fb); err != nil {
		return nil, err
	}
	fb.ID = id
	return &fb, nil
}

// FindFeedback returns the feedback for an interview attempt by a user.
func (s *FirestoreStore) FindFeedback(ctx context.Context, interviewID, userID string) (*schema.Feedback, error) {
	iter := s.client.Collection(FeedbackCollection).
		Where("interviewId", "==", interviewID).
		Where("userId", "==", userID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}

	var fb schema.Feedback
	if err := doc.DataTo(&fb); err != nil {
		return nil, fmt.Errorf("decode feedback %s: %w", doc.Ref.ID, err)
	}
	fb.ID = doc.Ref.ID
	return &fb, nil
}

// SaveCallRecord archives a finished call.
func (s *FirestoreStore) SaveCallRecord(ctx context.Context, rec *schema.CallRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if _, err := s.client.Collection(CallsCollection).Doc(rec.SessionID).Set(ctx, rec); err != nil {
		return fmt.Errorf("save call %s: %w", rec.SessionID, err)
	}
	return nil
}

// SaveInterview validates and writes an interview definition.
func (s *FirestoreStore) SaveInterview(ctx context.Context, iv *schema.Interview) error {
	if err := schema.ValidateInterview(iv); err != nil {
		return fmt.Errorf("invalid interview: %w", err)
	}
	if _, err := s.client.Collection(InterviewsCollection).Doc(iv.ID).Set(ctx, iv); err != nil {
		return fmt.Errorf("save interview %s: %w", iv.ID, err)
	}
	return nil
}

// LoadInterview reads an interview definition by ID.
func (s *FirestoreStore) LoadInterview(ctx context.Context, id string) (*schema.Interview, error) {
	var iv schema.Interview
	if err := s.get(ctx, InterviewsCollection, id, &iv); err != nil {
		return nil, err
	}
	iv.ID = id
	return &iv, nil
}

func (s *FirestoreStore) get(ctx context.Context, collection, id string, v any) error {
	doc, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if doc != nil && !doc.Exists() {
		return fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get %s %s: %w", collection, id, err)
	}
	if err := doc.DataTo(v); err != nil {
		return fmt.Errorf("decode %s %s: %w", collection, id, err)
	}
	return nil
}
