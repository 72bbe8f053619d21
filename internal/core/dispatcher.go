package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intervoice/pkg/schema"
)

// FeedbackCollaborator is the remote service that turns a transcript into stored feedback.
type FeedbackCollaborator interface {
	CreateFeedback(ctx context.Context, req *schema.FeedbackRequest) (*schema.FeedbackResponse, error)
}

// DispatchResult is the outcome of a single feedback attempt.
// Err carries the cause when Success is false.
type DispatchResult struct {
	Success    bool
	FeedbackID string
	Err        error
}

// FeedbackDispatcher invokes the feedback collaborator exactly once per call and never fails loudly.
type FeedbackDispatcher struct {
	collaborator FeedbackCollaborator
	timeout      time.Duration
	logger       Logger
}

// NewFeedbackDispatcher creates a dispatcher. A zero timeout leaves the caller's context as the only bound.
func NewFeedbackDispatcher(collaborator FeedbackCollaborator, timeout time.Duration, logger Logger) *FeedbackDispatcher {
	if logger == nil {
		logger = NopLogger()
	}
	return &FeedbackDispatcher{
		collaborator: collaborator,
		timeout:      timeout,
		logger:       logger,
	}
}

// Generate submits the transcript for feedback. Transport errors, collaborator errors,
// panics and cancellation all come back as Success=false. There is no retry.
func (d *FeedbackDispatcher) Generate(ctx context.Context, req *schema.FeedbackRequest) (result DispatchResult) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result = DispatchResult{Err: fmt.Errorf("feedback collaborator panicked: %v", r)}
		}
	}()

	// Copy the transcript so the collaborator cannot alias controller state
	transcript := make([]schema.TranscriptMessage, len(req.Transcript))
	copy(transcript, req.Transcript)
	call := &schema.FeedbackRequest{
		InterviewID: req.InterviewID,
		UserID:      req.UserID,
		FeedbackID:  req.FeedbackID,
		Transcript:  transcript,
	}

	start := time.Now()
	resp, err := d.collaborator.CreateFeedback(ctx, call)
	duration := time.Since(start)

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			d.logger.Warn("feedback dispatch timed out",
				"interview_id", req.InterviewID,
				"duration", duration,
			)
		}
		return DispatchResult{Err: err}
	}
	if resp == nil {
		return DispatchResult{Err: errors.New("empty response from feedback collaborator")}
	}

	d.logger.Debug("feedback dispatch completed",
		"interview_id", req.InterviewID,
		"success", resp.Success,
		"duration", duration,
	)

	return DispatchResult{Success: resp.Success, FeedbackID: resp.FeedbackID}
}
