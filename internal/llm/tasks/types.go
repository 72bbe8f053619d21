package tasks

import (
	"intervoice/pkg/schema"
)

// Feedback Task Types

// FeedbackInput is the input for transcript assessment.
type FeedbackInput struct {
	Transcript []schema.TranscriptMessage `json:"transcript"`
}

// CategoryScoreJSON is one scored category as the model returns it.
type CategoryScoreJSON struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// FeedbackOutput is the output from the feedback task.
type FeedbackOutput struct {
	TotalScore          int                 `json:"totalScore"`
	CategoryScores      []CategoryScoreJSON `json:"categoryScores"`
	Strengths           []string            `json:"strengths"`
	AreasForImprovement []string            `json:"areasForImprovement"`
	FinalAssessment     string              `json:"finalAssessment"`
}

// ToFeedback converts the model output into a feedback record without identity fields.
func (o *FeedbackOutput) ToFeedback() *schema.Feedback {
	scores := make([]schema.CategoryScore, len(o.CategoryScores))
	for i, cs := range o.CategoryScores {
		scores[i] = schema.CategoryScore{Name: cs.Name, Score: cs.Score, Comment: cs.Comment}
	}

	strengths := o.Strengths
	if strengths == nil {
		strengths = []string{}
	}
	improvements := o.AreasForImprovement
	if improvements == nil {
		improvements = []string{}
	}

	return &schema.Feedback{
		TotalScore:          o.TotalScore,
		CategoryScores:      scores,
		Strengths:           strengths,
		AreasForImprovement: improvements,
		FinalAssessment:     o.FinalAssessment,
	}
}
