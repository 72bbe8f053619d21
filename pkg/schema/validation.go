package schema

import (
	"fmt"
	"strings"
)

// ValidateSessionContext validates the identifiers a call session starts with.
func ValidateSessionContext(s *SessionContext) error {
	if s == nil {
		return fmt.Errorf("session context is required")
	}
	if strings.TrimSpace(s.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if len(s.UserName) > UserNameMax {
		return fmt.Errorf("user name must be at most %d characters", UserNameMax)
	}

	switch s.Type {
	case SessionGenerate:
		// Valid
	case SessionEvaluate:
		// Questions pass through as given; caps apply to stored interviews only
		if strings.TrimSpace(s.InterviewID) == "" {
			return fmt.Errorf("interview id is required for %s sessions", SessionEvaluate)
		}
	default:
		return fmt.Errorf("invalid session type: %q", s.Type)
	}

	return nil
}

// ValidateFeedbackRequest validates a request before it reaches the assessor.
// An empty transcript is valid.
func ValidateFeedbackRequest(r *FeedbackRequest) error {
	if r == nil {
		return fmt.Errorf("feedback request is required")
	}
	if strings.TrimSpace(r.InterviewID) == "" {
		return fmt.Errorf("interview id is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	for i, m := range r.Transcript {
		if !ValidRole(m.Role) {
			return fmt.Errorf("transcript[%d]: invalid role: %q", i, m.Role)
		}
		if len(m.Content) > TranscriptContentMax {
			return fmt.Errorf("transcript[%d]: content must be at most %d characters", i, TranscriptContentMax)
		}
	}
	return nil
}

// ValidateFeedback validates a generated assessment.
func ValidateFeedback(f *Feedback) error {
	if f.TotalScore < ScoreMin || f.TotalScore > ScoreMax {
		return fmt.Errorf("total score must be %d-%d, got %d", ScoreMin, ScoreMax, f.TotalScore)
	}

	if len(f.CategoryScores) != len(FeedbackCategories) {
		return fmt.Errorf("must have exactly %d category scores, got %d", len(FeedbackCategories), len(f.CategoryScores))
	}
	for i, cs := range f.CategoryScores {
		if cs.Name != FeedbackCategories[i] {
			return fmt.Errorf("category_scores[%d]: expected %q, got %q", i, FeedbackCategories[i], cs.Name)
		}
		if cs.Score < ScoreMin || cs.Score > ScoreMax {
			return fmt.Errorf("category_scores[%d]: score must be %d-%d, got %d", i, ScoreMin, ScoreMax, cs.Score)
		}
	}

	if len(f.FinalAssessment) < FinalAssessmentMin || len(f.FinalAssessment) > FinalAssessmentMax {
		return fmt.Errorf("final assessment must be %d-%d characters", FinalAssessmentMin, FinalAssessmentMax)
	}

	return nil
}

// ValidateInterview validates a prepared interview definition.
func ValidateInterview(iv *Interview) error {
	if strings.TrimSpace(iv.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(iv.Role) == "" {
		return fmt.Errorf("role is required")
	}
	return validateQuestions(iv.Questions)
}

func validateQuestions(questions []string) error {
	if len(questions) > QuestionsMax {
		return fmt.Errorf("must have at most %d questions, got %d", QuestionsMax, len(questions))
	}
	for i, q := range questions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("questions[%d]: must not be empty", i)
		}
		if len(q) > QuestionMax {
			return fmt.Errorf("questions[%d]: must be at most %d characters", i, QuestionMax)
		}
	}
	return nil
}
