// File path: internal/llm/providers/provider.go
package providers

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials indicates the upstream service rejected the API key.
	ErrInvalidCredentials = errors.New("invalid provider credentials")
	// ErrRateLimited indicates the upstream service throttled the request.
	// Callers may retry after a backoff; no retry happens here.
	ErrRateLimited = errors.New("provider rate limit exceeded")
	// ErrCompletionFailed covers all other upstream failures.
	ErrCompletionFailed = errors.New("completion request failed")
)

// CompletionRequest describes a single text-generation round-trip.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int64
}

// Completion carries the generated text plus token accounting.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Provider is the boundary to a text-generation service.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Name() string
}
