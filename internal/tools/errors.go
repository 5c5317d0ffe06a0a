package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/focus/internal/db"
)

// ErrToolUnavailable is returned when a tool call targets a tool that is not
// present in the registry.
type ErrToolUnavailable struct {
	ToolName string
}

func (e *ErrToolUnavailable) Error() string {
	return fmt.Sprintf("tool %q is not available in this context", e.ToolName)
}

// ValidationError reports tool arguments that do not match the declared
// schema.
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: invalid arguments: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Tool, e.Field, e.Reason)
}

// Execution failure kinds.
const (
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindTimeout    = "timeout"
	KindInternal   = "internal"
)

// ExecError is a failure raised while running an executor.
type ExecError struct {
	Tool string
	Kind string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Tool, e.Kind, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// execError classifies an executor error.
func execError(ctx context.Context, tool string, err error) error {
	var ee *ExecError
	if errors.As(err, &ee) {
		return err
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	kind := KindInternal
	var dve *db.ValidationError
	switch {
	case db.IsNotFound(err):
		kind = KindNotFound
	case errors.As(err, &dve):
		return &ValidationError{Tool: tool, Field: dve.Field, Reason: dve.Reason}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = KindTimeout
	}
	return &ExecError{Tool: tool, Kind: kind, Err: err}
}
