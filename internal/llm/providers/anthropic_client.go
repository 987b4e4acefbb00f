// File path: internal/llm/providers/anthropic_client.go
package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/mdpstudio/sprintforge/internal/common"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicProvider(client anthropic.Client) *AnthropicProvider {
	model := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	if model == "" {
		model = defaultAnthropicModel
	}
	logger := common.Logger()
	logger.Info("llm: anthropic provider configured", "model", model)
	return &AnthropicProvider{client: client, model: anthropic.Model(model)}
}

func (a *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	logger := common.Logger()
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	logger.Debug("llm: sending message request", "model", a.model, "max_tokens", maxTokens)
	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		logger.Error("llm: message request failed", "error", err)
		return Completion{}, mapAnthropicError(err)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Completion{}, fmt.Errorf("%w: empty response", ErrCompletionFailed)
	}
	logger.Debug("llm: message request succeeded",
		"input_tokens", msg.Usage.InputTokens, "output_tokens", msg.Usage.OutputTokens)
	return Completion{
		Text:         text.String(),
		Model:        string(msg.Model),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}

func (a *AnthropicProvider) Name() string {
	return "anthropic"
}

func mapAnthropicError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		case 429:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCompletionFailed, err)
}
