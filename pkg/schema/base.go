package schema

// CallStatus is the state of a single call session.
type CallStatus string

const (
	CallInactive   CallStatus = "inactive"   // No call in progress
	CallConnecting CallStatus = "connecting" // Start issued, waiting for the provider
	CallActive     CallStatus = "active"     // Provider reported the call started
	CallFinished   CallStatus = "finished"   // Terminal until a new session starts
)

// Role identifies the speaker of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SessionType selects how a call is driven and what happens after it.
type SessionType string

const (
	SessionGenerate SessionType = "generate" // Free-form interview generation
	SessionEvaluate SessionType = "evaluate" // Scripted interview against prepared questions
)

// FeedbackCategories are the fixed assessment areas, in report order.
var FeedbackCategories = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem Solving",
	"Cultural Fit",
	"Confidence and Clarity",
}

// ValidationLimits defines the constraints for various fields.
const (
	ScoreMin             = 0
	ScoreMax             = 100
	QuestionMax          = 500
	QuestionsMax         = 50
	UserNameMax          = 100
	FinalAssessmentMin   = 10
	FinalAssessmentMax   = 4000
	TranscriptContentMax = 20000
)
