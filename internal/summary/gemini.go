package summary

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint; empty uses the SDK default.
	BaseURL string
	Timeout time.Duration
}

// GeminiClient asks the Gemini API for one narrative per request.
type GeminiClient struct {
	cfg  GeminiConfig
	http *http.Client
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GeminiClient{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *GeminiClient) Summarize(ctx context.Context, d Digest) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.http,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.cfg.BaseURL},
	})
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	res, err := client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(Prompt(d)), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return res.Text(), nil
}
