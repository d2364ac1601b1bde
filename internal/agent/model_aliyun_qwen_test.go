package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAliyunQwenChatModelRequiresAPIKey(t *testing.T) {
	_, err := NewAliyunQwenChatModel("  ", "", "")
	assert.Error(t, err)
}

func TestNewAliyunQwenChatModelDefaults(t *testing.T) {
	m, err := NewAliyunQwenChatModel("key", "", "")
	require.NoError(t, err)
	assert.Equal(t, defaultQwenModelName, m.ModelName())
	assert.Equal(t, openAICompatibleQwenAPIURL, m.apiURL)
	assert.Equal(t, DefaultTemperature, m.temperature)
}

func TestAliyunQwenChatModelGenerate(t *testing.T) {
	var received openAIChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","model":"qwen-plus","choices":[{"index":0,"message":{"role":"assistant","content":"Full Name: John Doe"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer server.Close()

	m, err := NewAliyunQwenChatModel("test-key", "qwen-plus", server.URL, WithQwenHTTPClient(server.Client()))
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("extract")})
	require.NoError(t, err)
	assert.Equal(t, "Full Name: John Doe", msg.Content)
	assert.Equal(t, schema.Assistant, msg.Role)
	require.NotNil(t, msg.ResponseMeta)
	assert.Equal(t, 15, msg.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "qwen-plus", received.Model)
	require.Len(t, received.Messages, 1)
	assert.Equal(t, "user", received.Messages[0].Role)
	assert.Equal(t, "extract", received.Messages[0].Content)
	require.NotNil(t, received.Temperature)
	assert.InDelta(t, 0.2, *received.Temperature, 1e-6)
}

func TestAliyunQwenChatModelGenerateOptionOverride(t *testing.T) {
	var received openAIChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	m, err := NewAliyunQwenChatModel("k", "qwen-plus", server.URL)
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")},
		model.WithTemperature(0.7), model.WithModel("qwen-max"))
	require.NoError(t, err)
	assert.Equal(t, "qwen-max", received.Model)
	assert.InDelta(t, 0.7, *received.Temperature, 1e-6)
}

func TestAliyunQwenChatModelGenerateHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	m, err := NewAliyunQwenChatModel("k", "", server.URL)
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAliyunQwenChatModelGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	m, err := NewAliyunQwenChatModel("k", "", server.URL)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err)
}

func TestAliyunQwenChatModelWithTools(t *testing.T) {
	m, err := NewAliyunQwenChatModel("k", "", "")
	require.NoError(t, err)

	same, err := m.WithTools(nil)
	require.NoError(t, err)
	assert.Same(t, m, same)

	_, err = m.WithTools([]*schema.ToolInfo{{Name: "get_weather"}})
	assert.ErrorIs(t, err, ErrToolsNotSupported)
}
