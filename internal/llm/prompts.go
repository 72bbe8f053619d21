package llm

import (
	"fmt"
	"strings"

	"intervoice/pkg/schema"
)

// FormatTranscript renders a transcript as one "- role: content" line per message.
func FormatTranscript(transcript []schema.TranscriptMessage) string {
	var sb strings.Builder
	for _, m := range transcript {
		fmt.Fprintf(&sb, "- %s: %s\n", m.Role, m.Content)
	}
	return sb.String()
}

// BuildFeedbackPrompt creates the prompt that scores a mock interview transcript.
func BuildFeedbackPrompt(transcript []schema.TranscriptMessage) string {
	formatted := FormatTranscript(transcript)
	if formatted == "" {
		formatted = "(the candidate did not say anything)\n"
	}

	categories := make([]string, len(schema.FeedbackCategories))
	for i, name := range schema.FeedbackCategories {
		categories[i] = fmt.Sprintf("  %d. %s", i+1, name)
	}

	return fmt.Sprintf(`You are a professional interviewer analyzing a mock interview.
Your task is to evaluate the candidate based on structured categories.
Be thorough and detailed. Don't be lenient with the candidate. If there are mistakes or areas for improvement, point them out.

Transcript:
%s
Score the candidate from %d to %d in exactly these categories, in this order:
%s

RULES:
- totalScore is the overall score from %d to %d
- categoryScores has exactly %d entries with the names above, spelled exactly
- strengths and areasForImprovement are short lists of concrete observations
- finalAssessment is %d-%d characters

Return ONLY valid JSON with this exact structure:
{
  "totalScore": 0,
  "categoryScores": [
    {"name": "string", "score": 0, "comment": "string"}
  ],
  "strengths": ["string"],
  "areasForImprovement": ["string"],
  "finalAssessment": "string"
}`,
		formatted,
		schema.ScoreMin, schema.ScoreMax,
		strings.Join(categories, "\n"),
		schema.ScoreMin, schema.ScoreMax,
		len(schema.FeedbackCategories),
		schema.FinalAssessmentMin, schema.FinalAssessmentMax,
	)
}
