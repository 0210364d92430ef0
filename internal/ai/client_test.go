package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, content string, seen func(chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			seen(req)
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete_TextRequest(t *testing.T) {
	var got chatRequest
	srv := chatServer(t, http.StatusOK, "  hello  ", func(r chatRequest) { got = r })

	c := NewClientWithProviders([]Provider{{Name: "a", URL: srv.URL, APIKey: "test-key", Model: "m1"}}, nil, time.Second)
	out, err := c.Complete(context.Background(), Request{System: "sys", Prompt: "hi", Temperature: 0.3})

	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "m1", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
}

func TestComplete_VisionRequestSendsDataURL(t *testing.T) {
	var got chatRequest
	srv := chatServer(t, http.StatusOK, "{}", func(r chatRequest) { got = r })

	c := NewClientWithProviders(nil, []Provider{{Name: "v", URL: srv.URL, APIKey: "test-key", Model: "vision"}}, time.Second)
	_, err := c.Complete(context.Background(), Request{Prompt: "what is this", ImageBase64: "QUJD"})
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	parts, ok := got.Messages[0].Content.([]interface{})
	require.True(t, ok)
	require.Len(t, parts, 2)
	img := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})
	assert.Equal(t, "data:image/jpeg;base64,QUJD", img["url"])
}

func TestComplete_FallsThroughProviderChain(t *testing.T) {
	var firstCalls int32
	bad := chatServer(t, http.StatusInternalServerError, "", func(chatRequest) { atomic.AddInt32(&firstCalls, 1) })
	good := chatServer(t, http.StatusOK, "second", nil)

	c := NewClientWithProviders([]Provider{
		{Name: "bad", URL: bad.URL, APIKey: "test-key", Model: "m"},
		{Name: "good", URL: good.URL, APIKey: "test-key", Model: "m"},
	}, nil, time.Second)

	out, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "second", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&firstCalls))
}

func TestComplete_AllProvidersFail(t *testing.T) {
	bad := chatServer(t, http.StatusBadGateway, "", nil)
	c := NewClientWithProviders([]Provider{{Name: "bad", URL: bad.URL, APIKey: "test-key", Model: "m"}}, nil, time.Second)

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestComplete_NoProvider(t *testing.T) {
	c := NewClientWithProviders(nil, nil, 0)

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	assert.True(t, errors.Is(err, ErrNoProvider))
	_, err = c.Complete(context.Background(), Request{Prompt: "x", ImageBase64: "QUJD"})
	assert.True(t, errors.Is(err, ErrNoProvider))
}

func TestNewClient_BuildsChainsFromConfig(t *testing.T) {
	cfg := &config.Config{OpenAIAPIKey: "k", OpenAIModel: "text", OpenAIVisionModel: "vis", DeepSeekAPIKey: "d", AITimeout: time.Second}
	c := NewClient(cfg)

	assert.True(t, c.Configured(false))
	assert.True(t, c.Configured(true))
	require.Len(t, c.text, 2)
	assert.Equal(t, "openai", c.text[0].Name)
	assert.Equal(t, "deepseek", c.text[1].Name)
	require.Len(t, c.vision, 1)
	assert.Equal(t, "vis", c.vision[0].Model)

	glmOnly := NewClient(&config.Config{GLMAPIKey: "g"})
	assert.False(t, glmOnly.Configured(false))
	assert.True(t, glmOnly.Configured(true))

	var nilClient *Client
	assert.False(t, nilClient.Configured(false))
}
