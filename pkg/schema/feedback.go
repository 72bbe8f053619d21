package schema

import "time"

// FeedbackRequest is what the post-call workflow submits for assessment.
// Transcript order is conversation order and must be preserved end to end.
type FeedbackRequest struct {
	InterviewID string              `json:"interviewId"`
	UserID      string              `json:"userId"`
	FeedbackID  string              `json:"feedbackId,omitempty"`
	Transcript  []TranscriptMessage `json:"transcript"`
}

// FeedbackResponse is the collaborator's answer to a FeedbackRequest.
type FeedbackResponse struct {
	Success    bool   `json:"success"`
	FeedbackID string `json:"feedbackId,omitempty"`
}

// CategoryScore is the score for one of FeedbackCategories.
type CategoryScore struct {
	Name    string `json:"name" yaml:"name" firestore:"name"`
	Score   int    `json:"score" yaml:"score" firestore:"score"`
	Comment string `json:"comment" yaml:"comment" firestore:"comment"`
}

// Feedback is a stored assessment of one interview attempt.
type Feedback struct {
	ID                  string          `json:"id" yaml:"id" firestore:"-"`
	InterviewID         string          `json:"interviewId" yaml:"interview_id" firestore:"interviewId"`
	UserID              string          `json:"userId" yaml:"user_id" firestore:"userId"`
	TotalScore          int             `json:"totalScore" yaml:"total_score" firestore:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores" yaml:"category_scores" firestore:"categoryScores"`
	Strengths           []string        `json:"strengths" yaml:"strengths" firestore:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement" yaml:"areas_for_improvement" firestore:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment" yaml:"final_assessment" firestore:"finalAssessment"`
	CreatedAt           time.Time       `json:"createdAt" yaml:"created_at" firestore:"createdAt"`
}
