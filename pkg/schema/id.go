package schema

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// idAlphabet avoids '-' and '_' so ids stay safe in URL paths and file names.
const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewFeedbackID generates a new feedback ID in format FB-{nanoid(12)}.
func NewFeedbackID() (string, error) {
	id, err := gonanoid.Generate(idAlphabet, 12)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("FB-%s", id), nil
}

// NewInterviewID generates a new interview ID in format IV-{nanoid(12)}.
func NewInterviewID() (string, error) {
	id, err := gonanoid.Generate(idAlphabet, 12)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("IV-%s", id), nil
}
