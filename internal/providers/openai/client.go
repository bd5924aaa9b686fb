package openai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls how the OpenAI client is configured.
type Options struct {
	APIKey       string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// Client is a lightweight facade over the OpenAI HTTP API. When no API key is
// configured it serves deterministic synthetic responses instead, which keeps
// the worker fully operational in local and CI environments.
type Client struct {
	apiKey       string
	baseURL      string
	organization string
	client       *http.Client
	logger       zerolog.Logger
}

const defaultTimeout = 120 * time.Second

// APIError carries the HTTP status of a rejected provider call so callers can
// classify it.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai: status %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// IsQuota reports whether err is a provider quota rejection.
func IsQuota(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsRejected reports whether err is a non-quota provider rejection.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode != http.StatusTooManyRequests
}

// NewClient builds a client. An empty API key enables synthetic mode.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       httpClient,
		logger:       opts.Logger,
	}
}

// Synthetic reports whether the client fabricates responses locally.
func (c *Client) Synthetic() bool {
	return c.apiKey == ""
}

// ChatRequest describes one JSON-mode chat completion.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Usage is the token accounting reported by the provider. In synthetic mode it
// is estimated from payload sizes so cost tracking still exercises the same
// path.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

type chatRequestBody struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponseBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ChatJSON runs a JSON-mode chat completion and returns the raw JSON document
// the model produced. Callers in synthetic mode must build their own payloads;
// here it fails loudly so stages never forget the check.
func (c *Client) ChatJSON(ctx context.Context, req ChatRequest) (json.RawMessage, Usage, error) {
	if c.Synthetic() {
		return nil, Usage{}, errors.New("openai: chat completion requires an api key")
	}
	body := chatRequestBody{
		Model:          req.Model,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: &chatFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	}
	respBytes, err := c.post(ctx, "/chat/completions", body, "application/json")
	if err != nil {
		return nil, Usage{}, err
	}
	var parsed chatResponseBody
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, Usage{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, Usage{}, errors.New("openai: chat response has no choices")
	}
	usage := Usage{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}
	return json.RawMessage(parsed.Choices[0].Message.Content), usage, nil
}

// SpeechRequest describes one text-to-speech synthesis call.
type SpeechRequest struct {
	Model string
	Voice string
	Input string
}

// Speech synthesizes narration audio. Synthetic mode returns deterministic
// MP3-shaped bytes derived from the input text.
func (c *Client) Speech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if c.Synthetic() {
		return syntheticBytes("audio/"+req.Voice+"/"+req.Input, 24_000), nil
	}
	body := map[string]any{
		"model": req.Model,
		"voice": req.Voice,
		"input": req.Input,
	}
	return c.post(ctx, "/audio/speech", body, "audio/mpeg")
}

// ImageRequest describes one image generation call.
type ImageRequest struct {
	Model  string
	Prompt string
	Size   string
}

type imageResponseBody struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Image generates one image and returns its bytes. Synthetic mode returns
// deterministic PNG-shaped bytes derived from the prompt.
func (c *Client) Image(ctx context.Context, req ImageRequest) ([]byte, error) {
	if c.Synthetic() {
		return syntheticBytes("image/"+req.Size+"/"+req.Prompt, 48_000), nil
	}
	body := map[string]any{
		"model":           req.Model,
		"prompt":          req.Prompt,
		"size":            req.Size,
		"n":               1,
		"response_format": "b64_json",
	}
	respBytes, err := c.post(ctx, "/images/generations", body, "application/json")
	if err != nil {
		return nil, err
	}
	var parsed imageResponseBody
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, errors.New("openai: image response has no data")
	}
	decoded, err := decodeBase64(parsed.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return decoded, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, accept string) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("openai: request rejected")
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// syntheticBytes derives a stable pseudo-random payload from seed so repeated
// invocations with identical inputs produce identical assets.
func syntheticBytes(seed string, size int) []byte {
	sum := sha256.Sum256([]byte(seed))
	out := make([]byte, size)
	var counter uint64
	for off := 0; off < size; off += len(sum) {
		block := sha256.Sum256(append(sum[:], u64bytes(counter)...))
		copy(out[off:], block[:])
		counter++
	}
	return out
}

func u64bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
