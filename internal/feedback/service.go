package feedback

import (
	"context"
	"fmt"
	"time"

	"intervoice/internal/core"
	"intervoice/pkg/schema"
)

// Store persists generated feedback.
type Store interface {
	SaveFeedback(ctx context.Context, fb *schema.Feedback) error
	GetFeedback(ctx context.Context, id string) (*schema.Feedback, error)
	FindFeedback(ctx context.Context, interviewID, userID string) (*schema.Feedback, error)
}

// Assessor scores a transcript. The returned feedback carries no identity fields.
type Assessor interface {
	Assess(ctx context.Context, transcript []schema.TranscriptMessage) (*schema.Feedback, error)
}

// Service turns finished interview transcripts into stored feedback.
// It implements core.FeedbackCollaborator, so a controller can use it in-process.
type Service struct {
	assessor Assessor
	store    Store
	logger   core.Logger
	now      func() time.Time
}

// NewService creates a feedback service.
func NewService(assessor Assessor, store Store, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Service{
		assessor: assessor,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateFeedback validates the request, assesses the transcript and saves the result.
// A provided FeedbackID is reused so that retaking an interview overwrites the earlier feedback.
func (s *Service) CreateFeedback(ctx context.Context, req *schema.FeedbackRequest) (*schema.FeedbackResponse, error) {
	if err := schema.ValidateFeedbackRequest(req); err != nil {
		return nil, &core.ValidationError{Field: "request", Message: err.Error(), Err: err}
	}

	s.logger.Info("assessing interview",
		"interview_id", req.InterviewID,
		"user_id", req.UserID,
		"messages", len(req.Transcript),
	)

	start := time.Now()
	fb, err := s.assessor.Assess(ctx, req.Transcript)
	if err != nil {
		s.logger.Error("assessment failed",
			"interview_id", req.InterviewID,
			"error", err,
		)
		return nil, fmt.Errorf("assess interview %s: %w", req.InterviewID, err)
	}

	id := req.FeedbackID
	if id == "" {
		id, err = schema.NewFeedbackID()
		if err != nil {
			return nil, fmt.Errorf("generate feedback id: %w", err)
		}
	}

	fb.ID = id
	fb.InterviewID = req.InterviewID
	fb.UserID = req.UserID
	fb.CreatedAt = s.now().UTC()

	if err := s.store.SaveFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("save feedback %s: %w", id, err)
	}

	s.logger.Info("feedback saved",
		"interview_id", req.InterviewID,
		"feedback_id", id,
		"total_score", fb.TotalScore,
		"duration", time.Since(start),
	)

	return &schema.FeedbackResponse{Success: true, FeedbackID: id}, nil
}

// GetFeedback returns stored feedback by ID.
func (s *Service) GetFeedback(ctx context.Context, id string) (*schema.Feedback, error) {
	return s.store.GetFeedback(ctx, id)
}

// FindFeedback returns the feedback a user received for an interview.
func (s *Service) FindFeedback(ctx context.Context, interviewID, userID string) (*schema.Feedback, error) {
	return s.store.FindFeedback(ctx, interviewID, userID)
}
