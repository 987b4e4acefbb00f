// File path: internal/llm/providers/openai_client.go
package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v2"

	"github.com/mdpstudio/sprintforge/internal/common"
)

const defaultOpenAIModel = "gpt-4o"

type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(client openai.Client) *OpenAIProvider {
	model := strings.TrimSpace(os.Getenv("OPENAI_CHAT_MODEL"))
	if model == "" {
		model = defaultOpenAIModel
	}
	logger := common.Logger()
	logger.Info("llm: openai provider configured", "model", model)
	return &OpenAIProvider{client: client, model: model}
}

func (o *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	logger := common.Logger()
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))
	logger.Debug("llm: sending chat completion request", "model", o.model, "max_tokens", maxTokens)
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(o.model),
		MaxTokens: openai.Int(maxTokens),
		Messages:  messages,
	})
	if err != nil {
		logger.Error("llm: chat completion failed", "error", err)
		return Completion{}, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("%w: no choices returned", ErrCompletionFailed)
	}
	logger.Debug("llm: chat completion succeeded")
	return Completion{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

func mapOpenAIError(err error) error {
	var apierr *openai.Error
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
