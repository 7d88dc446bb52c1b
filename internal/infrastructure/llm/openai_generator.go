package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/sirupsen/logrus"

	"github.com/henzogomes/git-shame/configs"
	"github.com/henzogomes/git-shame/internal/core/ports"
)

// OpenAIGenerator produces roasts via the chat completions API.
type OpenAIGenerator struct {
	client    openai.Client
	model     string
	maxTokens int64
	logger    *logrus.Logger
}

// NewOpenAIGenerator creates a generator for the configured model.
func NewOpenAIGenerator(cfg *configs.OpenAIConfig, logger *logrus.Logger) ports.RoastGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIGenerator{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		logger:    logger,
	}
}

func (g *OpenAIGenerator) params(prompt ports.Prompt) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(g.model),
		MaxTokens: openai.Int(g.maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
	}
}

// Generate waits for the full completion. An empty choice list or empty
// content yields "" without error.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt ports.Prompt) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, g.params(prompt))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		if g.logger != nil {
			g.logger.WithField("model", g.model).Warn("openai: completion returned no choices")
		}
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

// GenerateStream forwards each content delta in order and returns the
// accumulated text. An onDelta error aborts the upstream stream.
func (g *OpenAIGenerator) GenerateStream(ctx context.Context, prompt ports.Prompt, onDelta func(delta string) error) (string, error) {
	stream := g.client.Chat.Completions.NewStreaming(ctx, g.params(prompt))
	defer stream.Close()

	var acc strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		acc.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return acc.String(), err
		}
	}
	if err := stream.Err(); err != nil {
		return acc.String(), fmt.Errorf("chat completion stream failed: %w", err)
	}
	return acc.String(), nil
}
