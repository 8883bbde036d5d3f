package vkapi

import (
	"errors"
	"fmt"
	"strings"
)

// VK API error codes the archiver cares about.
const (
	CodeUnknown          = 1
	CodeTooManyRequests  = 6
	CodeFloodControl     = 9
	CodeInternalError    = 10
	CodeAuthFailed       = 5
	CodePermissionDenied = 7
	CodeAccessDenied     = 15
	CodeUserDeleted      = 18
	CodeWallDisabled     = 19
	CodeBadParams        = 100
	CodeInvalidUserID    = 113
)

// APIError is an error envelope returned by the VK API.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
	Method  string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("vk api error on %s (code %d): %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("vk api error (code %d): %s", e.Code, e.Message)
}

// IsRetryable reports whether err is worth retrying. Auth, permission,
// not-found and parameter errors fail fast; everything else (rate limits,
// flood control, server errors, transport failures) is retried.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case CodeAuthFailed, CodePermissionDenied, CodeAccessDenied,
			CodeUserDeleted, CodeWallDisabled, CodeBadParams, CodeInvalidUserID:
			return false
		}
		return true
	}
	return true
}

// IsRateLimited is a best-effort heuristic over the error text, used only to
// pick the log message for a retry. Control flow never depends on it.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Code == CodeTooManyRequests || apiErr.Code == CodeFloodControl) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "code 6")
}
