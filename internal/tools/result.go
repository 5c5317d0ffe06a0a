package tools

import (
	"errors"
	"slices"
)

// ActionToolError tags the envelope of a failed tool call.
const ActionToolError = "tool_error"

// Suggested remediations carried in tool_error envelopes.
const (
	SuggestCreateGoalFirst = "create_goal_first"
	SuggestCheckArguments  = "check_arguments"
	SuggestRetryLater      = "retry_later"
)

// Result is the uniform executor envelope. It carries data for the model
// to narrate, never user-facing prose.
type Result struct {
	Success bool           `json:"success"`
	Action  string         `json:"action"`
	Data    map[string]any `json:"data"`
}

func ok(action string, data map[string]any) *Result {
	return &Result{Success: true, Action: action, Data: data}
}

// needsGoal lists tools that fail with not_found when the user has no
// matching goal or task to act on.
var needsGoal = []string{"create_task", "complete_task", "get_goal_tasks"}

// ErrorResult converts a dispatch failure into a tool_error envelope. The
// message is a safe summary; raw error text is never included.
func ErrorResult(tool string, err error) *Result {
	errType, msg, suggest := KindInternal, "The tool could not complete right now.", SuggestRetryLater

	var (
		unavailable *ErrToolUnavailable
		invalid     *ValidationError
		exec        *ExecError
	)
	switch {
	case errors.As(err, &unavailable):
		errType, msg, suggest = "unknown_tool", "No tool with that name is available.", SuggestCheckArguments
	case errors.As(err, &invalid):
		errType, suggest = KindValidation, SuggestCheckArguments
		msg = "The arguments were invalid."
		if invalid.Field != "" {
			msg = "Invalid " + invalid.Field + ": " + invalid.Reason + "."
		}
	case errors.As(err, &exec):
		switch exec.Kind {
		case KindNotFound:
			errType, msg, suggest = KindNotFound, "The referenced goal or task does not exist for this user.", SuggestCreateGoalFirst
		case KindTimeout:
			errType, msg = KindTimeout, "The tool timed out."
		}
	}

	return &Result{
		Success: false,
		Action:  ActionToolError,
		Data: map[string]any{
			"tool_name":     tool,
			"error_type":    errType,
			"error_message": msg,
			"user_context": map[string]any{
				"needs_setup":      suggest == SuggestCreateGoalFirst && slices.Contains(needsGoal, tool),
				"suggested_action": suggest,
			},
		},
	}
}
