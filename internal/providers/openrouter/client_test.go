package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ykurilov/banana-editor/internal/providers/image"
)

func TestGenerateBuildsChatPayload(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "orkey", BaseURL: server.URL, Model: "some/model"})
	_, err := client.Generate(context.Background(), image.Request{
		Prompt: "draw a cat",
		Images: []image.Input{{MimeType: "image/jpeg", Base64: "REVG"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotAuth != "Bearer orkey" {
		t.Fatalf("auth header mismatch: got %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("path mismatch: got %q", gotPath)
	}
	if gotBody.Model != "some/model" {
		t.Fatalf("model mismatch: got %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("message count mismatch: got %d", len(gotBody.Messages))
	}
	if gotBody.Messages[0].Role != "system" {
		t.Fatalf("first message role mismatch: %q", gotBody.Messages[0].Role)
	}
	var system string
	if err := json.Unmarshal(gotBody.Messages[0].Content, &system); err != nil {
		t.Fatalf("system content should be a plain string: %v", err)
	}
	if !strings.Contains(system, "single data URL") {
		t.Fatalf("system instruction mismatch: %q", system)
	}

	var blocks []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		ImageURL *struct {
			URL string `json:"url"`
		} `json:"image_url"`
	}
	if err := json.Unmarshal(gotBody.Messages[1].Content, &blocks); err != nil {
		t.Fatalf("user content should be a block array: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("block count mismatch: got %d", len(blocks))
	}
	if blocks[0].Type != "text" || blocks[0].Text != "draw a cat" {
		t.Fatalf("text block mismatch: %+v", blocks[0])
	}
	if blocks[1].Type != "image_url" || blocks[1].ImageURL == nil {
		t.Fatalf("image block mismatch: %+v", blocks[1])
	}
	if blocks[1].ImageURL.URL != "data:image/jpeg;base64,REVG" {
		t.Fatalf("data url mismatch: %q", blocks[1].ImageURL.URL)
	}
}

func TestGenerateRejectsNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
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
