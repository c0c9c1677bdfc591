package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/notifyhub/cogbot/internal/domain"
)

// GeminiChat generates chat completions with Google's Gemini API.
type GeminiChat struct {
	client *genai.Client
	model  string
}

// NewGeminiChat creates a client for model using apiKey.
func NewGeminiChat(ctx context.Context, apiKey, model string) (*GeminiChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiChat{client: client, model: model}, nil
}

func (g *GeminiChat) Complete(ctx context.Context, req domain.ChatRequest) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Message), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		TopP:            genai.Ptr(req.TopP),
		MaxOutputTokens: int32(req.MaxLength),
	})
	if err != nil {
		return "", classifyGenAIError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", domain.ErrEmptyCompletion
	}
	return text, nil
}

func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= 500:
			return fmt.Errorf("%w: gemini %d %s", ErrTransient, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("gemini %d: %s", apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("gemini generate: %w", err)
}

var _ ChatCompleter = (*GeminiChat)(nil)
