package ratelimit_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-parser-go/internal/agent"
	"resume-parser-go/internal/ratelimit"
)

func TestRateLimitedModelRetriesQuotaErrors(t *testing.T) {
	var logs bytes.Buffer
	mock := agent.NewMockChatModelSequential([]agent.MockResponse{
		{Error: errors.New("Error 429: Too Many Requests")},
		{Error: errors.New("rpc error: code = UNAVAILABLE")},
		{Content: "Name: Jane"},
	})
	llm := ratelimit.NewLLMWithRateLimit(mock, ratelimit.Policy{QPM: 6000, MaxRetries: 3, RetryWait: time.Millisecond}, zerolog.New(&logs))

	msg, err := llm.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "Name: Jane", msg.Content)
	assert.Equal(t, 3, mock.Calls())
	assert.Contains(t, logs.String(), "LLM调用失败，准备重试")
}

func TestRateLimitedModelDoesNotRetryOtherErrors(t *testing.T) {
	invalid := errors.New("invalid api key")
	mock := agent.NewMockChatModelSequential([]agent.MockResponse{
		{Error: invalid},
		{Content: "never reached"},
	})
	llm := ratelimit.NewLLMWithRateLimit(mock, ratelimit.Policy{QPM: 6000, RetryWait: time.Millisecond}, zerolog.Nop())

	_, err := llm.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, invalid)
	assert.Equal(t, 1, mock.Calls())
}

func TestRateLimitedModelGivesUpAfterMaxRetries(t *testing.T) {
	quota := errors.New("RESOURCE_EXHAUSTED")
	responses := make([]agent.MockResponse, 5)
	for i := range responses {
		responses[i] = agent.MockResponse{Error: quota}
	}
	mock := agent.NewMockChatModelSequential(responses)
	llm := ratelimit.NewLLMWithRateLimit(mock, ratelimit.Policy{QPM: 6000, MaxRetries: 2, RetryWait: time.Millisecond}, zerolog.Nop())

	_, err := llm.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, quota)
	assert.Equal(t, 3, mock.Calls(), "首次调用加两次重试")
}

func TestRateLimitedModelStreamAndTools(t *testing.T) {
	mock := agent.NewMockChatModelSequential([]agent.MockResponse{{Content: "streamed"}})
	llm := ratelimit.NewLLMWithRateLimit(mock, ratelimit.Policy{}, zerolog.Nop())

	stream, err := llm.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer stream.Close()
	msg, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "streamed", msg.Content)

	withTools, err := llm.WithTools(nil)
	require.NoError(t, err)
	assert.NotNil(t, withTools)
}
