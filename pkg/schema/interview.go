package schema

import "time"

// Interview is a prepared interview definition used for evaluate sessions.
type Interview struct {
	ID        string    `json:"id" yaml:"id" firestore:"-"`
	UserID    string    `json:"userId,omitempty" yaml:"user_id,omitempty" firestore:"userId,omitempty"`
	Role      string    `json:"role" yaml:"role" firestore:"role"`
	Level     string    `json:"level" yaml:"level" firestore:"level"`
	Type      string    `json:"type" yaml:"type" firestore:"type"`
	Techstack []string  `json:"techstack,omitempty" yaml:"techstack,omitempty" firestore:"techstack,omitempty"`
	Questions []string  `json:"questions" yaml:"questions" firestore:"questions"`
	Finalized bool      `json:"finalized" yaml:"finalized" firestore:"finalized"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at" firestore:"createdAt"`
}

// CallRecord is the archived transcript of a finished call.
type CallRecord struct {
	SessionID    string              `json:"sessionId" yaml:"session_id" firestore:"sessionId"`
	UserID       string              `json:"userId" yaml:"user_id" firestore:"userId"`
	InterviewID  string              `json:"interviewId,omitempty" yaml:"interview_id,omitempty" firestore:"interviewId,omitempty"`
	Type         SessionType         `json:"type" yaml:"type" firestore:"type"`
	Transcript   []TranscriptMessage `json:"transcript" yaml:"transcript" firestore:"transcript"`
	StartedAt    time.Time           `json:"startedAt" yaml:"started_at" firestore:"startedAt"`
	EndedAt      time.Time           `json:"endedAt" yaml:"ended_at" firestore:"endedAt"`
	DurationSecs int                 `json:"durationSecs" yaml:"duration_secs" firestore:"durationSecs"`
	Outcome      string              `json:"outcome" yaml:"outcome" firestore:"outcome"`
	FeedbackID   string              `json:"feedbackId,omitempty" yaml:"feedback_id,omitempty" firestore:"feedbackId,omitempty"`
}
