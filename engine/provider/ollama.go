package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

// ErrNoChoices is returned when a chat completion comes back empty.
var ErrNoChoices = errors.New("provider: completion returned no choices")

// Ollama implements Embedder and Generator against a local Ollama server.
type Ollama struct {
	baseURL    string
	embedModel string
	chatModel  string
	client     *http.Client
}

// NewOllama creates an Ollama provider for the given base URL.
func NewOllama(baseURL, embedModel, chatModel string) *Ollama {
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		chatModel:  chatModel,
		client:     &http.Client{Timeout: 2 * time.Minute},
	}
}

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float64 `json:"embedding"`
}

type ollamaGenerateReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResp struct {
	Response string `json:"response"`
}

// Embed embeds texts one at a time; Ollama's embeddings endpoint takes a
// single prompt per call.
func (p *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("ollama embed [%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (p *Ollama) embedOne(ctx context.Context, text string) ([]float32, error) {
	var result ollamaEmbedResp
	if err := p.post(ctx, "/api/embeddings", ollamaEmbedReq{Model: p.embedModel, Prompt: text}, &result); err != nil {
		return nil, err
	}
	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// Generate runs a non-streaming completion.
func (p *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	var result ollamaGenerateResp
	err := p.post(ctx, "/api/generate", ollamaGenerateReq{
		Model:  p.chatModel,
		Prompt: prompt,
		Stream: false,
	}, &result)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Response), nil
}

func (p *Ollama) post(ctx context.Context, path string, reqBody, respBody any) error {
	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.NewCollaboratorError("ollama "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewCollaboratorError("ollama "+path,
			fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return domain.NewCollaboratorError("ollama "+path,
			fmt.Errorf("decode: %w", err))
	}
	return nil
}
