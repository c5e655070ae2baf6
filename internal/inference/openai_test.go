package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIBackend_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"hello back"}}]}`))
	}))
	defer srv.Close()

	b := NewOpenAIBackend(OpenAIConfig{BaseURL: srv.URL + "/v1/", Model: "llama-3", APIKey: "secret", Stop: []string{"<|eot_id|>"}})
	out, err := b.Complete(context.Background(), prompt("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello back", out)

	assert.Equal(t, "llama-3", got.Model)
	assert.Equal(t, []string{"<|eot_id|>"}, got.Stop)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestOpenAIBackend_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"status", http.StatusBadGateway, `upstream down`, "status 502"},
		{"api error", http.StatusOK, `{"error":{"message":"bad model","type":"invalid"}}`, "bad model"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"bad json", http.StatusOK, `{`, "parsing API response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAIBackend(OpenAIConfig{BaseURL: srv.URL}).Complete(context.Background(), prompt("x"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
