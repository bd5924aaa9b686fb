package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestChatJSONParsesContentAndUsage(t *testing.T) {
	client := NewClient(Options{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/v1/chat/completions" {
				t.Fatalf("unexpected path %q", r.URL.Path)
			}
			return jsonResponse(200, `{
				"choices":[{"message":{"content":"{\"tytul\":\"Rzym\"}"}}],
				"usage":{"prompt_tokens":120,"completion_tokens":40}
			}`), nil
		})},
	})
	raw, usage, err := client.ChatJSON(context.Background(), ChatRequest{Model: "gpt-4o-mini", User: "brief"})
	if err != nil {
		t.Fatalf("ChatJSON returned error: %v", err)
	}
	var parsed map[string]string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("content is not JSON: %v", err)
	}
	if parsed["tytul"] != "Rzym" {
		t.Fatalf("content = %#v", parsed)
	}
	if usage.PromptTokens != 120 || usage.CompletionTokens != 40 {
		t.Fatalf("usage = %+v", usage)
	}
}

func TestChatJSONClassifiesQuota(t *testing.T) {
	client := NewClient(Options{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(429, `{"error":{"message":"quota"}}`), nil
		})},
	})
	_, _, err := client.ChatJSON(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsQuota(err) {
		t.Fatalf("IsQuota = false for %v", err)
	}
	if IsRejected(err) {
		t.Fatalf("IsRejected = true for quota error %v", err)
	}
}

func TestChatJSONRefusesSyntheticMode(t *testing.T) {
	client := NewClient(Options{})
	if !client.Synthetic() {
		t.Fatal("client without key should be synthetic")
	}
	if _, _, err := client.ChatJSON(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("ChatJSON should fail in synthetic mode")
	}
}

func TestSpeechSyntheticIsDeterministic(t *testing.T) {
	client := NewClient(Options{})
	a, err := client.Speech(context.Background(), SpeechRequest{Voice: "nova", Input: "tekst"})
	if err != nil {
		t.Fatalf("Speech returned error: %v", err)
	}
	b, err := client.Speech(context.Background(), SpeechRequest{Voice: "nova", Input: "tekst"})
	if err != nil {
		t.Fatalf("Speech returned error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("synthetic audio is not deterministic")
	}
	c, err := client.Speech(context.Background(), SpeechRequest{Voice: "echo", Input: "tekst"})
	if err != nil {
		t.Fatalf("Speech returned error: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Fatal("synthetic audio ignores the voice")
	}
}
