package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarityworks/clarifier/internal/clerrors"
)

func TestOpenRouter_Complete(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "a fine reply"}},
			},
		})
	}))
	defer srv.Close()

	c := NewOpenRouterClient("test-key", WithBaseURL(srv.URL), WithModel("test/model"))
	reply, err := c.Complete(context.Background(), CompletionRequest{
		Messages:    SystemUser("be terse", "say hi"),
		Temperature: 0.3,
	})

	require.NoError(t, err)
	assert.Equal(t, "a fine reply", reply)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "test/model", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, RoleSystem, gotReq.Messages[0].Role)
}

func TestOpenRouter_PerRequestModelOverride(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	c := NewOpenRouterClient("k", WithBaseURL(srv.URL), WithModel("default/model"))
	_, err := c.Complete(context.Background(), CompletionRequest{
		Messages: SystemUser("s", "u"),
		Model:    "override/model",
	})
	require.NoError(t, err)
	assert.Equal(t, "override/model", gotReq.Model)
}

func TestOpenRouter_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewOpenRouterClient("k", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), CompletionRequest{Messages: SystemUser("s", "u")})
	assert.ErrorIs(t, err, clerrors.ErrEmptyCompletion)
}

func TestOpenRouter_Non200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenRouterClient("k", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), CompletionRequest{Messages: SystemUser("s", "u")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenRouter_APIErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 402, "message": "credits exhausted"},
		})
	}))
	defer srv.Close()

	c := NewOpenRouterClient("k", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), CompletionRequest{Messages: SystemUser("s", "u")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credits exhausted")
}

func TestOpenRouter_NoAPIKey(t *testing.T) {
	c := NewOpenRouterClient("")
	_, err := c.Complete(context.Background(), CompletionRequest{Messages: SystemUser("s", "u")})
	assert.ErrorIs(t, err, clerrors.ErrCompletionUnavailable)
}

func TestDisabled(t *testing.T) {
	c := Disabled{}
	_, err := c.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, clerrors.ErrCompletionUnavailable)
	assert.Equal(t, "disabled", c.ModelID())
}
