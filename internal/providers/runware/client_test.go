package runware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/ykurilov/banana-editor/internal/providers/image"
)

func decodeTasks(t *testing.T, r *http.Request) []map[string]any {
	t.Helper()
	var tasks []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&tasks); err != nil {
		t.Errorf("decode request: %v", err)
	}
	return tasks
}

func TestGenerateBuildsInferenceTask(t *testing.T) {
	var gotTasks []map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTasks = decodeTasks(t, r)
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "rwkey", BaseURL: server.URL, Model: "runware:101@1"})
	_, err := client.Generate(context.Background(), image.Request{
		Prompt:       "a red bicycle",
		ResultsCount: 3,
		Images:       []image.Input{{MimeType: "image/png", Base64: "QUJD"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotAuth != "Bearer rwkey" {
		t.Fatalf("auth header mismatch: got %q", gotAuth)
	}
	if len(gotTasks) != 1 {
		t.Fatalf("task count mismatch: got %d", len(gotTasks))
	}
	task := gotTasks[0]
	if task["taskType"] != "imageInference" {
		t.Fatalf("task type mismatch: %v", task["taskType"])
	}
	if _, err := uuid.Parse(task["taskUUID"].(string)); err != nil {
		t.Fatalf("taskUUID is not a UUID: %v", task["taskUUID"])
	}
	if task["positivePrompt"] != "a red bicycle" {
		t.Fatalf("prompt mismatch: %v", task["positivePrompt"])
	}
	if task["numberResults"] != float64(3) {
		t.Fatalf("numberResults mismatch: %v", task["numberResults"])
	}
	if task["outputFormat"] != "JPG" {
		t.Fatalf("outputFormat mismatch: %v", task["outputFormat"])
	}
	refs := task["referenceImages"].([]any)
	if len(refs) != 1 || refs[0] != "data:image/png;base64,QUJD" {
		t.Fatalf("referenceImages mismatch: %v", refs)
	}
}

func TestGenerateOmitsReferenceImagesWhenTextOnly(t *testing.T) {
	var gotTasks []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTasks = decodeTasks(t, r)
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: server.URL})
	if _, err := client.Generate(context.Background(), image.Request{Prompt: "p"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// Presence of the key is semantically meaningful upstream; it must be
	// absent, not an empty array.
	if _, present := gotTasks[0]["referenceImages"]; present {
		t.Fatalf("referenceImages should be omitted, got %v", gotTasks[0]["referenceImages"])
	}
}

func TestGenerateRaisesBodyErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [{"code": "invalidModel", "message": "unknown model"}]}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), image.Request{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error from errors array")
	}
}

func TestGenerateRejectsNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("gateway exploded"))
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
