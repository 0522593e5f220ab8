package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ykurilov/banana-editor/internal/providers/image"
)

func TestGenerateBuildsContentsPayload(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "k1", BaseURL: server.URL, Model: "img-model"})
	resp, err := client.Generate(context.Background(), image.Request{
		Prompt: "make it blue",
		Images: []image.Input{{MimeType: "image/png", Base64: "QUJD", Filename: "a.png"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status mismatch: got %d", resp.StatusCode)
	}
	if gotPath != "/models/img-model:generateContent" {
		t.Fatalf("path mismatch: got %q", gotPath)
	}
	if gotKey != "k1" {
		t.Fatalf("key mismatch: got %q", gotKey)
	}

	contents := gotBody["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("contents length mismatch: %d", len(contents))
	}
	parts := contents[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("parts length mismatch: %d", len(parts))
	}
	if text := parts[0].(map[string]any)["text"]; text != "make it blue" {
		t.Fatalf("text part mismatch: %v", text)
	}
	inline := parts[1].(map[string]any)["inline_data"].(map[string]any)
	if inline["mime_type"] != "image/png" || inline["data"] != "QUJD" {
		t.Fatalf("inline data mismatch: %v", inline)
	}
}

func TestGenerateModelOverride(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: server.URL, Model: "primary"})
	if _, err := client.Generate(context.Background(), image.Request{Prompt: "p", Model: "fallback"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gotPath, "fallback") {
		t.Fatalf("expected fallback model in path, got %q", gotPath)
	}
}

func TestGenerateTagsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "slow down"}}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: server.URL})
	resp, err := client.Generate(context.Background(), image.Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.StatusCode != 429 {
		t.Fatalf("status mismatch: got %d", resp.StatusCode)
	}
	if resp.ErrorCode() != 429 {
		t.Fatalf("embedded error code mismatch: got %d", resp.ErrorCode())
	}
}

func TestGenerateRejectsNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream proxy error</html>"))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: server.URL})
	if _, err := client.Generate(context.Background(), image.Request{Prompt: "p"}); err == nil {
		t.Fatal("expected error for non-JSON body")
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	client := NewClient(Options{})
	if _, err := client.Generate(context.Background(), image.Request{Prompt: "p"}); err != ErrMissingAPIKey {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
