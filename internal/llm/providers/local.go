// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mdpstudio/sprintforge/internal/common"
)

// LocalProvider is an offline fallback used when no API key is configured.
// It produces a deterministic placeholder so the rest of the pipeline stays
// exercisable during development.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	common.Logger().Warn("llm: using local placeholder provider; synthesis output will be stubbed")
	return &LocalProvider{}
}

func (l *LocalProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	select {
	case <-ctx.Done():
		return Completion{}, ctx.Err()
	default:
	}
	excerpt := req.Prompt
	if len(excerpt) > 280 {
		excerpt = excerpt[:280]
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"summary":        "Local placeholder synthesis. Configure ANTHROPIC_API_KEY or OPENAI_API_KEY for real output.",
		"prompt_excerpt": strings.TrimSpace(excerpt),
	})
	return Completion{
		Text:         string(payload),
		Model:        "local",
		InputTokens:  int64(len(req.Prompt) / 4),
		OutputTokens: int64(len(payload) / 4),
	}, nil
}

func (l *LocalProvider) Name() string {
	return "local"
}
