// Package image defines the normalized request, response and result types
// shared by all image providers, plus the per-provider result extraction
// rules.
package image

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider tags for the closed set of supported upstreams.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderRunware    = "runware"
)

// Input is one source image forwarded upstream.
type Input struct {
	MimeType string
	Base64   string
	Filename string
}

// Request is the normalized generation request passed to any provider.
// Model may override the provider's configured default; ResultsCount is
// advisory and only honored by providers that support it.
type Request struct {
	Prompt       string
	Model        string
	Images       []Input
	ResultsCount int
}

// Response is the raw JSON body of one upstream call, tagged with the HTTP
// status it arrived under. The body is kept opaque here; extraction and
// retry logic interpret it independently.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// ErrorCode returns a numeric error code embedded in the generic
// {"error": {"code": ...}} envelope some providers use, or 0 when absent.
func (r *Response) ErrorCode() int {
	if r == nil || len(r.Body) == 0 {
		return 0
	}
	var envelope struct {
		Error struct {
			Code json.Number `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return 0
	}
	code, err := envelope.Error.Code.Int64()
	if err != nil {
		return 0
	}
	return int(code)
}

// ErrorPayload returns the raw "error" object from the response body, or nil.
func (r *Response) ErrorPayload() json.RawMessage {
	if r == nil || len(r.Body) == 0 {
		return nil
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return nil
	}
	if string(envelope.Error) == "null" {
		return nil
	}
	return envelope.Error
}

// Result is one normalized image produced by a provider. Exactly one of B64
// and ImageURL is set; the browser handles either payload shape.
type Result struct {
	MimeType string  `json:"mimeType"`
	B64      string  `json:"b64,omitempty"`
	ImageURL string  `json:"imageURL,omitempty"`
	Filename string  `json:"filename"`
	Cost     float64 `json:"cost,omitempty"`
	Seed     int64   `json:"seed,omitempty"`
	ImageID  string  `json:"imageUUID,omitempty"`
}

// Caller is the contract implemented by all provider adapters. A call issues
// exactly one upstream HTTPS request; a non-JSON body is an error, never a
// zero-result response.
type Caller interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// CoerceMimeType trusts declared image content types and rewrites anything
// else to image/png before forwarding upstream.
func CoerceMimeType(mimeType string) string {
	if strings.HasPrefix(mimeType, "image/") {
		return mimeType
	}
	return "image/png"
}
