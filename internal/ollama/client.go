// Package ollama talks to a locally-running Ollama server. The pipeline
// treats the model as an opaque text-in/text-out service: a model listing
// for the availability check and one generate call per user action. Failures
// come back as in-band "Error: ..." reply strings, displayed like any other
// response, never as fatal errors.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint = "http://localhost:11434"
	defaultTimeout  = 120 * time.Second
)

// Client is a minimal Ollama API client.
type Client struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewClient creates a client for the given endpoint and model. Zero values
// take the local defaults. The timeout bounds every model call; a hung
// server produces an in-band error instead of a stuck session.
func NewClient(endpoint, model string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CheckModelAvailability reports whether the server is reachable and has the
// model pulled.
func (c *Client) CheckModelAvailability(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if strings.Contains(m.Name, c.model) {
			return true
		}
	}
	return false
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Execute sends the prompt and returns the model's reply, trimmed. Any
// failure (server down, bad status, undecodable body) returns a literal
// error string in place of a reply.
func (c *Client) Execute(ctx context.Context, prompt string) string {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "Error: Could not encode model request."
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "Error: Could not build model request."
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "Error: Could not reach the Ollama server."
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "Error: Ollama returned status " + resp.Status + "."
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return "Error: Could not decode Ollama response."
	}
	return strings.TrimSpace(gen.Response)
}
