package schema

// TranscriptMessage is one finalized conversation turn.
// Values are never mutated after creation; slices of them are copied, not shared.
type TranscriptMessage struct {
	Role    Role   `json:"role" yaml:"role" firestore:"role"`
	Content string `json:"content" yaml:"content" firestore:"content"`
}

// ValidRole reports whether r is one of the known speaker roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
