package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAPIKeyRequired   = errors.New("api key required")
	ErrModelRequired    = errors.New("generation model required")
	ErrEmptyResponse    = errors.New("empty response from model")
	ErrUnknownProvider  = errors.New("unknown ai provider")
	ErrInvalidAnalysis  = errors.New("invalid analysis from model")
	ErrContentRequired  = errors.New("Content is required")
	ErrMessagesRequired = errors.New("messages required")
)

// TextGenerator produces one completion for a system and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Provider names accepted by NewGenerator.
const (
	ProviderNone   = ""
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// GeneratorConfig selects and configures a provider.
type GeneratorConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// NewGenerator builds the configured TextGenerator. An empty provider
// returns nil without error: the portal then runs without language model
// features.
func NewGenerator(cfg GeneratorConfig) (TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderNone:
		return nil, nil
	case ProviderOpenAI:
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case ProviderGemini:
		client, err := NewGeminiClient(cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return NewGeminiGenerator(client, cfg.Model), nil
	case ProviderOllama:
		return NewOllamaGenerator(NewOllamaClient(cfg.BaseURL), cfg.Model), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
