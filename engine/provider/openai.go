package provider

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/pkg/fn"
)

// OpenAI implements Embedder and Generator against the OpenAI API (or any
// compatible endpoint). Transient API failures are retried here, at the
// transport edge; callers see only the final error.
type OpenAI struct {
	client     *openai.Client
	embedModel openai.EmbeddingModel
	chatModel  string
	retry      fn.RetryOpts
}

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // optional, for compatible endpoints
	EmbedModel string
	ChatModel  string
}

// NewOpenAI creates an OpenAI provider. Empty model names fall back to
// text-embedding-3-small and gpt-4o-mini.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	embedModel := openai.EmbeddingModel(cfg.EmbedModel)
	if cfg.EmbedModel == "" {
		embedModel = openai.SmallEmbedding3
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	return &OpenAI{
		client:     openai.NewClientWithConfig(clientCfg),
		embedModel: embedModel,
		chatModel:  chatModel,
		retry:      fn.DefaultRetry,
	}
}

// Embed returns one vector per input text.
func (p *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	r := fn.Retry(ctx, p.retry, func(ctx context.Context) fn.Result[[][]float32] {
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: p.embedModel,
		})
		if err != nil {
			return fn.Err[[][]float32](domain.NewCollaboratorError("openai embed", err))
		}
		out := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			out[i] = d.Embedding
		}
		return fn.Ok(out)
	})
	return r.Unwrap()
}

// Generate runs a single-turn chat completion for the prompt.
func (p *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	r := fn.Retry(ctx, p.retry, func(ctx context.Context) fn.Result[string] {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return fn.Err[string](domain.NewCollaboratorError("openai chat", err))
		}
		if len(resp.Choices) == 0 {
			return fn.Err[string](domain.NewCollaboratorError("openai chat", ErrNoChoices))
		}
		return fn.Ok(strings.TrimSpace(resp.Choices[0].Message.Content))
	})
	return r.Unwrap()
}
