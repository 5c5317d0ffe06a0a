package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
	"github.com/tidwall/gjson"
)

const (
	KindAuth        = "auth"
	KindRateLimit   = "rate_limit"
	KindTimeout     = "timeout"
	KindUnavailable = "unavailable"
)

// ProviderError is a classified completion provider failure.
type ProviderError struct {
	Kind string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Classify wraps err in a ProviderError, inspecting SDK status codes and
// error bodies. Errors that are already classified pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Kind: classify(err), Err: err}
}

func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var status int
	var body string
	var oaiErr *openai.Error
	var anthErr *anthropic.Error
	switch {
	case errors.As(err, &oaiErr):
		status, body = oaiErr.StatusCode, oaiErr.RawJSON()
	case errors.As(err, &anthErr):
		status, body = anthErr.StatusCode, anthErr.RawJSON()
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	}

	if body != "" {
		for _, path := range []string{"error.type", "type", "error.code", "code"} {
			switch gjson.Get(body, path).String() {
			case "authentication_error", "permission_error", "invalid_api_key":
				return KindAuth
			case "rate_limit_error", "rate_limit_exceeded":
				return KindRateLimit
			}
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "api key") || strings.Contains(msg, "api_key") {
		return KindAuth
	}
	return KindUnavailable
}

// IsAuth reports whether err is a credentials or configuration failure.
func IsAuth(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == KindAuth
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") || strings.Contains(msg, "api_key")
}
