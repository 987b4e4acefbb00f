// File path: internal/llm/llm.go
package llm

import (
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/openai/openai-go/v2"
	openaiopt "github.com/openai/openai-go/v2/option"

	"github.com/mdpstudio/sprintforge/internal/common"
	"github.com/mdpstudio/sprintforge/internal/llm/providers"
)

type CompletionRequest = providers.CompletionRequest

type Completion = providers.Completion

type Provider = providers.Provider

var (
	ErrInvalidCredentials = providers.ErrInvalidCredentials
	ErrRateLimited        = providers.ErrRateLimited
	ErrCompletionFailed   = providers.ErrCompletionFailed
)

// NewProvider selects a text-generation provider from the environment.
// Anthropic is preferred, then OpenAI; without either key a local
// placeholder provider keeps the pipeline usable offline.
func NewProvider() Provider {
	logger := common.Logger()
	if apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); apiKey != "" {
		opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(apiKey)}
		if timeout := requestTimeout("ANTHROPIC_HTTP_TIMEOUT"); timeout > 0 {
			logger.Info("llm: configuring anthropic client with custom HTTP timeout", "timeout", timeout)
			opts = append(opts, anthropicopt.WithRequestTimeout(timeout))
		}
		logger.Info("llm: anthropic provider selected")
		return providers.NewAnthropicProvider(anthropic.NewClient(opts...))
	}
	if apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); apiKey != "" {
		opts := []openaiopt.RequestOption{openaiopt.WithAPIKey(apiKey)}
		if endpoint := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); endpoint != "" {
			logger.Info("llm: configuring openai client with custom endpoint", "endpoint", endpoint)
			opts = append(opts, openaiopt.WithBaseURL(endpoint))
		}
		if timeout := requestTimeout("OPENAI_HTTP_TIMEOUT"); timeout > 0 {
			opts = append(opts, openaiopt.WithRequestTimeout(timeout))
		}
		logger.Info("llm: openai provider selected")
		return providers.NewOpenAIProvider(openai.NewClient(opts...))
	}
	logger.Warn("llm: no provider API key set; falling back to local provider")
	return providers.NewLocalProvider()
}

func requestTimeout(envVar string) time.Duration {
	raw := strings.TrimSpace(os.Getenv(envVar))
	if raw == "" {
		return 0
	}
	timeout, err := time.ParseDuration(raw)
	if err != nil {
		common.Logger().Warn("llm: invalid timeout value, using default", "var", envVar, "value", raw, "error", err)
		return 0
	}
	return timeout
}
