// Package openrouter is a client for OpenRouter's OpenAI-style chat
// completions API, used here to drive multimodal image generation.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ykurilov/banana-editor/internal/infra"
	"github.com/ykurilov/banana-editor/internal/providers/image"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("openrouter: api key is required")

// systemInstruction fixes the assistant's task so the response carries the
// image as a single embedded data URL the extractor can find.
const systemInstruction = "You are an image generation and editing assistant. " +
	"If the user provides input images, edit them as requested. If not, generate a brand new image. " +
	"Always include the result as a single data URL (data:image/png;base64,...) in your final message and nothing else."

// Options configures the OpenRouter client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client performs HTTP calls to the OpenRouter chat completions endpoint.
// No request timeout is enforced at this layer; generation latency varies
// wildly across routed models.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentBlock struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "google/gemini-2.0-flash-exp"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Generate issues one chat completion call whose user content interleaves
// the prompt text with one data-URL image block per input image.
func (c *Client) Generate(ctx context.Context, req image.Request) (*image.Response, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}

	userContent := make([]contentBlock, 0, 1+len(req.Images))
	userContent = append(userContent, contentBlock{Type: "text", Text: req.Prompt})
	for _, img := range req.Images {
		userContent = append(userContent, contentBlock{
			Type:     "image_url",
			ImageURL: &imageURL{URL: "data:" + img.MimeType + ";base64," + img.Base64},
		})
	}
	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: userContent},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openrouter: encode request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: read response: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("openrouter: bad json from upstream (status %d)", resp.StatusCode)
	}

	c.logger.Debug().
		Str("model", model).
		Int("status", resp.StatusCode).
		Int("images", len(req.Images)).
		Msg("openrouter: chat completion call completed")
	return &image.Response{StatusCode: resp.StatusCode, Body: raw}, nil
}

var _ image.Caller = (*Client)(nil)
