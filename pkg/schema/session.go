package schema

// SessionContext carries the immutable identifiers for one call session.
type SessionContext struct {
	UserID      string      `json:"userId" yaml:"user_id"`
	UserName    string      `json:"userName,omitempty" yaml:"user_name,omitempty"`
	InterviewID string      `json:"interviewId,omitempty" yaml:"interview_id,omitempty"`
	FeedbackID  string      `json:"feedbackId,omitempty" yaml:"feedback_id,omitempty"`
	Type        SessionType `json:"type" yaml:"type"`

	// Questions are only used when Type is SessionEvaluate.
	Questions []string `json:"questions,omitempty" yaml:"questions,omitempty"`
}

// Clone returns a copy that shares no slices with s.
func (s *SessionContext) Clone() *SessionContext {
	clone := *s
	if s.Questions != nil {
		clone.Questions = make([]string, len(s.Questions))
		copy(clone.Questions, s.Questions)
	}
	return &clone
}
