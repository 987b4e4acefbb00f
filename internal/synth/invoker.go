// File path: internal/synth/invoker.go
package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mdpstudio/sprintforge/internal/common"
	"github.com/mdpstudio/sprintforge/internal/llm"
)

// ErrParse indicates the model response could not be decoded as the JSON
// structure the prompt demanded.
var ErrParse = errors.New("synthesis response is not valid JSON")

const (
	phaseMaxTokens        = 2048
	documentMaxTokens     = 8192
	presentationMaxTokens = 8192
	feedbackMaxTokens     = 4096
)

// Result is a synthesis outcome. Structured holds the decoded JSON when
// parsing succeeded; otherwise Raw carries the model text untouched.
type Result struct {
	Structured   map[string]interface{}
	Raw          string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// IsStructured reports whether the model produced decodable JSON.
func (r Result) IsStructured() bool {
	return r.Structured != nil
}

// SynthesisJSON renders the result the way it is persisted: the decoded
// structure when available, otherwise a raw_response wrapper.
func (r Result) SynthesisJSON() ([]byte, error) {
	if r.IsStructured() {
		return json.Marshal(r.Structured)
	}
	return json.Marshal(map[string]string{"raw_response": r.Raw})
}

// PhaseRequest describes one phase synthesis call. PreviousSynthesis and
// IterationFeedback together switch the call into revision mode.
type PhaseRequest struct {
	Phase             int
	Inputs            map[string]interface{}
	SubStep           string
	PreviousSynthesis map[string]interface{}
	IterationFeedback string
}

// Invoker renders prompts and drives the completion provider. It holds no
// retry logic; callers decide whether a failed synthesis is retried.
type Invoker struct {
	provider llm.Provider
}

func NewInvoker(provider llm.Provider) *Invoker {
	return &Invoker{provider: provider}
}

// SynthesizePhase runs a phase synthesis. JSON parse failures degrade to a
// raw result rather than an error: the student still sees the model text.
func (inv *Invoker) SynthesizePhase(ctx context.Context, req PhaseRequest) (Result, error) {
	prompt, err := PhasePrompt(req.Phase, req.Inputs, req.SubStep)
	if err != nil {
		return Result{}, err
	}
	if req.PreviousSynthesis != nil && strings.TrimSpace(req.IterationFeedback) != "" {
		prompt = appendIterationContext(prompt, req.PreviousSynthesis, req.IterationFeedback)
	}

	completion, err := inv.complete(ctx, coachSystemPrompt, prompt, phaseMaxTokens)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Raw:          completion.Text,
		Model:        completion.Model,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
	}
	var structured map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(StripCodeFences(completion.Text)), &structured); jsonErr == nil {
		result.Structured = structured
	} else {
		common.Logger().Warn("synth: phase response fell back to raw text",
			"phase", req.Phase, "sub_step", req.SubStep)
	}
	return result, nil
}

// CompileDocument produces the full document body from every phase's data.
func (inv *Invoker) CompileDocument(ctx context.Context, phases []PhaseContent, project ProjectInfo) (string, error) {
	completion, err := inv.complete(ctx, documentSystemPrompt, documentPrompt(phases, project), documentMaxTokens)
	if err != nil {
		return "", err
	}
	return StripCodeFences(completion.Text), nil
}

// ReviseDocument rewrites a document applying only the approved updates.
func (inv *Invoker) ReviseDocument(ctx context.Context, previousDocument string, updates []SuggestedUpdate, projectName string) (string, error) {
	completion, err := inv.complete(ctx, documentSystemPrompt,
		revisionPrompt(previousDocument, updates, projectName), documentMaxTokens)
	if err != nil {
		return "", err
	}
	return StripCodeFences(completion.Text), nil
}

// CompilePresentation generates the reveal.js story HTML for a document.
func (inv *Invoker) CompilePresentation(ctx context.Context, documentContent string, branding Branding) (string, error) {
	completion, err := inv.complete(ctx, presentationSystemPrompt,
		presentationPrompt(documentContent, branding), presentationMaxTokens)
	if err != nil {
		return "", err
	}
	return StripCodeFences(completion.Text), nil
}

// AnalyzeFeedback runs the feedback-analysis call. Unlike phase synthesis
// there is no raw fallback: a malformed response fails with ErrParse
// because the revision loop needs the structured diff.
func (inv *Invoker) AnalyzeFeedback(ctx context.Context, input FeedbackInput) (map[string]interface{}, error) {
	completion, err := inv.complete(ctx, feedbackSystemPrompt, feedbackPrompt(input), feedbackMaxTokens)
	if err != nil {
		return nil, err
	}
	var analysis map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(StripCodeFences(completion.Text)), &analysis); jsonErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, jsonErr)
	}
	return analysis, nil
}

func (inv *Invoker) complete(ctx context.Context, system, prompt string, maxTokens int64) (llm.Completion, error) {
	if inv == nil || inv.provider == nil {
		return llm.Completion{}, errors.New("synth: no completion provider configured")
	}
	completion, err := inv.provider.Complete(ctx, llm.CompletionRequest{
		System:    system,
		Prompt:    prompt,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return llm.Completion{}, err
	}
	common.Logger().Debug("synth: completion finished",
		"provider", inv.provider.Name(), "model", completion.Model,
		"input_tokens", completion.InputTokens, "output_tokens", completion.OutputTokens)
	return completion, nil
}

func appendIterationContext(prompt string, previous map[string]interface{}, feedback string) string {
	previousJSON, _ := json.MarshalIndent(previous, "", "  ")
	builder := &strings.Builder{}
	builder.WriteString(prompt)
	builder.WriteString("\n\n---\n\nITERATION CONTEXT:\nThe student has reviewed your previous synthesis and wants revisions.\n\n**Previous Synthesis:**\n")
	builder.Write(previousJSON)
	builder.WriteString("\n\n**Student Feedback:**\n")
	builder.WriteString(feedback)
	builder.WriteString("\n\nPlease revise your synthesis based on this feedback. Maintain the same JSON response format.")
	return builder.String()
}

var (
	leadingFence  = regexp.MustCompile("^```(?:json|html|markdown|md)?\\s*\n?")
	trailingFence = regexp.MustCompile("\n?\\s*```\\s*$")
)

// StripCodeFences removes a wrapping Markdown code fence if the model
// added one despite instructions.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = leadingFence.ReplaceAllString(trimmed, "")
	trimmed = trailingFence.ReplaceAllString(trimmed, "")
	return strings.TrimSpace(trimmed)
}
