package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Config configures a chat completions client.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls an OpenAI-compatible chat completions endpoint with an image.
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vision provider returned %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// New constructs a client. An empty API key is rejected.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("vision api key is required")
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		apiCfg.BaseURL = base
	}
	if cfg.HTTPClient != nil {
		apiCfg.HTTPClient = cfg.HTTPClient
	} else {
		apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.GPT4o
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &Client{
		api:       openai.NewClientWithConfig(apiCfg),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// DataURL inlines image bytes as a base64 data URL.
func DataURL(image []byte, mime string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// Describe sends prompt and image as one user message and returns the first
// choice's content, or "" when the reply has no choices.
func (c *Client) Describe(ctx context.Context, prompt string, image []byte, mime string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: DataURL(image, mime)}},
			},
		}},
	})
	if err != nil {
		return "", statusError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func statusError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := string(reqErr.Body)
		if body == "" && reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &StatusError{Status: reqErr.HTTPStatusCode, Body: body}
	}
	return err
}
