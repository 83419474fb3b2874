package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrStreamIncomplete is returned when an OpenAI stream closes before the
// model reports a finish reason, e.g. after an in-band error event.
var ErrStreamIncomplete = errors.New("openai stream ended without finish reason")

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

func (c *openAIConfig) options() []openai.Option {
	opts := []openai.Option{openai.WithToken(c.APIKey)}
	if c.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(c.BaseURL))
	}
	return opts
}

type openAIProvider struct {
	llm *openai.LLM
}

func (p *openAIProvider) Name() string {
	return "openai"
}

func (p *openAIProvider) Generate(ctx context.Context, model string, req *ChatRequest) (string, error) {
	if p.llm == nil {
		return "", ErrUnavailable
	}
	resp, err := p.llm.GenerateContent(ctx, toOpenAIMessages(req), callOptions(model, req)...)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func (p *openAIProvider) Stream(ctx context.Context, model string, req *ChatRequest, fn StreamFunc) error {
	if p.llm == nil {
		return ErrUnavailable
	}
	opts := append(callOptions(model, req), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		return fn(string(chunk))
	}))
	resp, err := p.llm.GenerateContent(ctx, toOpenAIMessages(req), opts...)
	if err != nil {
		return fmt.Errorf("openai stream: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].StopReason == "" {
		return ErrStreamIncomplete
	}
	return nil
}

func callOptions(model string, req *ChatRequest) []llms.CallOption {
	opts := []llms.CallOption{llms.WithModel(model)}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(float64(*req.Temperature)))
	}
	return opts
}

func toOpenAIMessages(req *ChatRequest) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, msg.Content))
	}
	return out
}

type openAIEmbedProvider struct {
	cfg *openAIConfig
}

func (p *openAIEmbedProvider) Name() string {
	return "openai"
}

func (p *openAIEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if p.cfg.APIKey == "" {
		return nil, ErrUnavailable
	}
	llm, err := openai.New(append(p.cfg.options(), openai.WithEmbeddingModel(model))...)
	if err != nil {
		return nil, fmt.Errorf("init openai embedder: %w", err)
	}
	vectors, err := llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai response has no embeddings")
	}
	return vectors[0], nil
}

func parseOpenAIConfig(args interface{}) (*openAIConfig, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	return cfg, nil
}

func createOpenAIFactory(args interface{}) (IProvider, error) {
	cfg, err := parseOpenAIConfig(args)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return &openAIProvider{}, nil
	}
	llm, err := openai.New(cfg.options()...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	return &openAIProvider{llm: llm}, nil
}

func createOpenAIEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg, err := parseOpenAIConfig(args)
	if err != nil {
		return nil, err
	}
	return &openAIEmbedProvider{cfg: cfg}, nil
}

func init() {
	Register("openai", createOpenAIFactory)
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
