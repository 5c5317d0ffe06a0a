package agent

import (
	"errors"
	"fmt"

	"github.com/chris/focus/internal/llm"
)

// ErrEmptyMessage is returned before any provider call when the user
// message is blank.
var ErrEmptyMessage = errors.New("message is required")

const (
	// FallbackMessage is used when the model returns no text.
	FallbackMessage = "I'm here to help! Could you tell me more about what you're working on?"
	// TaskFallbackMessage is the task coaching equivalent.
	TaskFallbackMessage = "I'm here to help with this task! What specifically would you like to work on?"

	NotConfiguredMessage = "AI service is not properly configured. Please check API settings."
	DegradedMessage      = "I'm having some technical difficulties, but I'm still here to help! Try asking me again in a moment."
)

// TurnError is a turn that could not produce a reply. Message is safe to
// show to the user.
type TurnError struct {
	NotConfigured bool
	Message       string
	Err           error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("agent turn: %v", e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

func turnError(err error) *TurnError {
	if llm.IsAuth(err) {
		return &TurnError{NotConfigured: true, Message: NotConfiguredMessage, Err: err}
	}
	return &TurnError{Message: DegradedMessage, Err: err}
}
