package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oz-workspace/api/internal/config"
	"github.com/oz-workspace/api/internal/pkg/types"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// OpenAIRunner answers invocations with a single chat completion. It never
// reports artifacts or events.
type OpenAIRunner struct {
	client openai.Client
	model  string
	log    *zap.Logger
}

func NewOpenAIRunner(cfg *config.Config, log *zap.Logger) *OpenAIRunner {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.Agent.OpenAI.APIKey),
	}
	if cfg.Agent.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Agent.OpenAI.BaseURL))
	}

	model := cfg.Agent.OpenAI.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIRunner{
		client: openai.NewClient(opts...),
		model:  model,
		log:    log,
	}
}

func (r *OpenAIRunner) Run(ctx context.Context, req types.RunRequest) (*types.RunResult, error) {
	params := openai.ChatCompletionNewParams{
		Model:    r.model,
		Messages: buildMessages(req),
	}

	start := time.Now()
	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return &types.RunResult{
				Success:     false,
				Error:       apiErr.Error(),
				ErrorStatus: apiErr.StatusCode,
			}, nil
		}
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return &types.RunResult{Success: false, Error: "no choices in response"}, nil
	}

	r.log.Debug("agent chat completed",
		zap.String("model", r.model),
		zap.String("agent_id", req.Agent.ID.String()),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens))

	return &types.RunResult{
		Success: true,
		Message: resp.Choices[0].Message.Content,
	}, nil
}

func buildMessages(req types.RunRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.Agent.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.Agent.SystemPrompt))
	}
	for _, h := range req.History {
		switch h.Role {
		case "agent":
			msgs = append(msgs, openai.AssistantMessage(h.Content))
		case "system":
			msgs = append(msgs, openai.SystemMessage(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	return append(msgs, openai.UserMessage(req.Prompt))
}
