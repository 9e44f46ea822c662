package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	platformhttp "github.com/Alias1177/Problepo/internal/platform/http"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/org/model" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body generationRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if body.Inputs != "prompt" || body.Parameters.ReturnFullText {
			t.Errorf("unexpected request %+v", body)
		}
		w.Write([]byte(`[{"generated_text":"answer"}]`))
	}))
	defer srv.Close()

	client := NewClient("hf-key", "org/model", platformhttp.NewClient(platformhttp.ClientOptions{Timeout: time.Second})).
		WithBaseURL(srv.URL)

	text, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "answer" {
		t.Errorf("Expected 'answer', got %q", text)
	}
}

func TestCompleteEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient("k", "m", platformhttp.NewClient(platformhttp.ClientOptions{})).WithBaseURL(srv.URL)
	if _, err := client.Complete(context.Background(), "p"); err == nil {
		t.Fatal("Expected error for empty generations")
	}
}
