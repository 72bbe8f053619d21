package core

import "fmt"

// NavigationKind is the destination chosen after a call.
type NavigationKind string

const (
	NavigateHome     NavigationKind = "home"
	NavigateFeedback NavigationKind = "feedback"
)

// Navigation is the single terminal intent a session emits to the UI layer.
type Navigation struct {
	Kind        NavigationKind
	InterviewID string
}

// Home returns the "go home" intent.
func Home() Navigation {
	return Navigation{Kind: NavigateHome}
}

// FeedbackFor returns the "go to feedback" intent for an interview.
func FeedbackFor(interviewID string) Navigation {
	return Navigation{Kind: NavigateFeedback, InterviewID: interviewID}
}

// Path returns the route the UI should open.
func (n Navigation) Path() string {
	if n.Kind == NavigateFeedback {
		return fmt.Sprintf("/interview/%s/feedback", n.InterviewID)
	}
	return "/"
}
