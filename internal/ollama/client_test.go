package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckModelAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"name": "gemma3:1b"},
				{"name": "llama3.2:3b"},
			},
		})
	}))
	defer srv.Close()

	assert.True(t, NewClient(srv.URL, "gemma3:1b", 0).CheckModelAvailability(context.Background()))
	assert.True(t, NewClient(srv.URL, "llama3.2", 0).CheckModelAvailability(context.Background()))
	assert.False(t, NewClient(srv.URL, "mistral", 0).CheckModelAvailability(context.Background()))
}

func TestCheckModelAvailabilityServerDown(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "gemma3:1b", time.Second)
	assert.False(t, c.CheckModelAvailability(context.Background()))
}

func TestExecute(t *testing.T) {
	var gotPrompt, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.False(t, req.Stream)
		gotPrompt, gotModel = req.Prompt, req.Model
		json.NewEncoder(w).Encode(map[string]string{"response": "  Sure, sounds good!\n"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "gemma3:1b", 0)
	reply := c.Execute(context.Background(), "draft me a reply")

	assert.Equal(t, "Sure, sounds good!", reply)
	assert.Equal(t, "draft me a reply", gotPrompt)
	assert.Equal(t, "gemma3:1b", gotModel)
}

func TestExecuteFailuresAreInBand(t *testing.T) {
	down := NewClient("http://127.0.0.1:1", "gemma3:1b", time.Second)
	assert.True(t, strings.HasPrefix(down.Execute(context.Background(), "hi"), "Error:"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()
	notFound := NewClient(srv.URL, "gemma3:1b", 0)
	assert.True(t, strings.HasPrefix(notFound.Execute(context.Background(), "hi"), "Error:"))

	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer garbled.Close()
	bad := NewClient(garbled.URL, "gemma3:1b", 0)
	assert.Equal(t, "Error: Could not decode Ollama response.", bad.Execute(context.Background(), "hi"))
}

func TestExecuteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "gemma3:1b", 50*time.Millisecond)
	reply := c.Execute(context.Background(), "hi")
	assert.True(t, strings.HasPrefix(reply, "Error:"), "got %q", reply)
}
