package tasks

import (
	"context"
	"fmt"

	"intervoice/internal/llm"
	"intervoice/pkg/schema"
)

// ExecuteFeedbackTask scores an interview transcript.
func ExecuteFeedbackTask(
	ctx context.Context,
	client llm.Completer,
	model string,
	maxRetries int,
	input *FeedbackInput,
) (*FeedbackOutput, error) {
	prompt := llm.BuildFeedbackPrompt(input.Transcript)

	result, err := llm.GenerateStructured[FeedbackOutput](
		ctx,
		client,
		model,
		prompt,
		maxRetries,
		ValidateFeedbackOutput,
	)
	if err != nil {
		return nil, fmt.Errorf("feedback task failed: %w", err)
	}

	return result, nil
}

// ValidateFeedbackOutput checks scores, category order and assessment length.
func ValidateFeedbackOutput(output *FeedbackOutput) error {
	return schema.ValidateFeedback(output.ToFeedback())
}
