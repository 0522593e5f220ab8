// Package runware is a client for the Runware image inference API.
package runware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ykurilov/banana-editor/internal/infra"
	"github.com/ykurilov/banana-editor/internal/providers/image"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("runware: api key is required")

// Options configures the Runware client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Runware task API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// inferenceTask is one entry of the task array Runware accepts. The
// referenceImages field must be omitted entirely for text-only generation;
// an empty array changes upstream semantics.
type inferenceTask struct {
	TaskType        string   `json:"taskType"`
	TaskUUID        string   `json:"taskUUID"`
	PositivePrompt  string   `json:"positivePrompt"`
	Model           string   `json:"model"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	NumberResults   int      `json:"numberResults"`
	OutputFormat    string   `json:"outputFormat"`
	ReferenceImages []string `json:"referenceImages,omitempty"`
}

type errorEnvelope struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.runware.ai/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "runware:101@1"
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

// Generate issues one imageInference task requesting req.ResultsCount JPEG
// outputs. Error arrays embedded in the JSON body are raised as call
// failures, never absorbed into an empty result.
func (c *Client) Generate(ctx context.Context, req image.Request) (*image.Response, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	numberResults := req.ResultsCount
	if numberResults < 1 {
		numberResults = 1
	}

	task := inferenceTask{
		TaskType:       "imageInference",
		TaskUUID:       uuid.NewString(),
		PositivePrompt: req.Prompt,
		Model:          model,
		Width:          1024,
		Height:         1024,
		NumberResults:  numberResults,
		OutputFormat:   "JPG",
	}
	for _, img := range req.Images {
		task.ReferenceImages = append(task.ReferenceImages, "data:"+img.MimeType+";base64,"+img.Base64)
	}

	body, err := json.Marshal([]inferenceTask{task})
	if err != nil {
		return nil, fmt.Errorf("runware: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("runware: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("runware: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("runware: read response: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("runware: bad json from upstream (status %d)", resp.StatusCode)
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		return nil, fmt.Errorf("runware: %s (%s)", first.Message, first.Code)
	}

	c.logger.Debug().
		Str("model", model).
		Str("task_uuid", task.TaskUUID).
		Int("status", resp.StatusCode).
		Int("reference_images", len(task.ReferenceImages)).
		Msg("runware: inference call completed")
	return &image.Response{StatusCode: resp.StatusCode, Body: raw}, nil
}

var _ image.Caller = (*Client)(nil)
