package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAICompatGenerator calls an OpenAI-compatible /chat/completions endpoint.
// baseURL includes the version prefix, e.g. "http://localhost:8000/v1". The
// API key may be empty for local gateways.
type OpenAICompatGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAICompatGenerator(baseURL, apiKey, model string) *OpenAICompatGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAICompatGenerator{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *OpenAICompatGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("openai: %w", ErrModelRequired)
	}
	var header http.Header
	if g.apiKey != "" {
		header = http.Header{"Authorization": []string{"Bearer " + g.apiKey}}
	}
	reqBody := oaiChatRequest{Model: g.model, Messages: chatTurns(systemPrompt, userPrompt)}

	var resp oaiChatResponse
	if err := postJSON(ctx, g.httpClient, "openai", g.baseURL+"/chat/completions", header, reqBody, &resp, &oaiError{}); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return text, nil
}

type oaiChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type oaiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (e *oaiError) message() string { return e.Error.Message }
