package vkapi

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unknown error", &APIError{Code: CodeUnknown, Message: "Unknown error occurred"}, true},
		{"rate limit code", &APIError{Code: CodeTooManyRequests, Message: "Too many requests per second"}, true},
		{"flood control", &APIError{Code: CodeFloodControl, Message: "Flood control"}, true},
		{"internal error", &APIError{Code: CodeInternalError, Message: "Internal server error"}, true},
		{"auth failed", &APIError{Code: CodeAuthFailed, Message: "User authorization failed"}, false},
		{"permission denied", &APIError{Code: CodePermissionDenied, Message: "Permission to perform this action is denied"}, false},
		{"access denied", &APIError{Code: CodeAccessDenied, Message: "Access denied"}, false},
		{"deleted user", &APIError{Code: CodeUserDeleted, Message: "User was deleted or banned"}, false},
		{"bad params", &APIError{Code: CodeBadParams, Message: "One of the parameters specified was missing or invalid"}, false},
		{"wrapped api error", fmt.Errorf("call failed: %w", &APIError{Code: CodePermissionDenied}), false},
		{"plain transport error", errors.New("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"code 6", &APIError{Code: CodeTooManyRequests, Message: "Too many requests per second"}, true},
		{"flood", &APIError{Code: CodeFloodControl, Message: "Flood control"}, true},
		{"message match", errors.New("server said: Too Many Requests"), true},
		{"rate limit text", errors.New("hit the rate limit, slow down"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Errorf("IsRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Code: 6, Message: "Too many requests per second", Method: "photos.get"}
	want := "vk api error on photos.get (code 6): Too many requests per second"
	if err.Error() != want {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
