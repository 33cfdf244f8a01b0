package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// providerError is the decoded error body of a failed provider call.
type providerError interface {
	message() string
}

// chatMessage is the role/content turn shared by the OpenAI and Ollama
// chat endpoints.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func chatTurns(systemPrompt, userPrompt string) []chatMessage {
	turns := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		turns = append(turns, chatMessage{Role: "system", Content: systemPrompt})
	}
	return append(turns, chatMessage{Role: "user", Content: userPrompt})
}

// postJSON sends payload to url and decodes a 2xx body into out. Non-2xx
// responses are decoded into errBody so the provider's own message surfaces.
func postJSON(ctx context.Context, hc *http.Client, provider, url string, header http.Header, payload, out any, errBody providerError) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(errBody)
		if msg := errBody.message(); msg != "" {
			return fmt.Errorf("%s api error: %s", provider, msg)
		}
		return fmt.Errorf("%s api error: %s", provider, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", provider, err)
	}
	return nil
}
