package ratelimit

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

const (
	// DefaultQPM 未配置时的每分钟请求数
	DefaultQPM = 30
	// DefaultMaxRetries 未配置时的最大重试次数
	DefaultMaxRetries = 3
)

// RateLimitedLLMModel 对LLM模型的调用进行限流和重试的代理
type RateLimitedLLMModel struct {
	original    model.ToolCallingChatModel
	rateLimiter *TokenBucket
}

// NewRateLimitedLLMModel 创建一个新的限流LLM模型代理
func NewRateLimitedLLMModel(original model.ToolCallingChatModel, qpm int) *RateLimitedLLMModel {
	return &RateLimitedLLMModel{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2), // 容量设为QPM的一半，允许一定的突发流量
	}
}

// WithRetryPolicy 设置重试策略
func (rl *RateLimitedLLMModel) WithRetryPolicy(waitTime time.Duration, maxRetries int) *RateLimitedLLMModel {
	rl.rateLimiter.WithRetryPolicy(waitTime, maxRetries)
	return rl
}

// WithLogger 重试时输出警告日志
func (rl *RateLimitedLLMModel) WithLogger(logger zerolog.Logger) *RateLimitedLLMModel {
	rl.rateLimiter.OnRetry(func(attempt int, wait time.Duration, err error) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("LLM调用失败，准备重试")
	})
	return rl
}

// Generate 代理Generate方法，增加限流和重试逻辑
func (rl *RateLimitedLLMModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	var response *schema.Message
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var genErr error
		response, genErr = rl.original.Generate(ctx, messages, options...)
		return genErr
	})
	return response, err
}

// Stream 代理Stream方法，增加限流和重试逻辑
func (rl *RateLimitedLLMModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	var stream *schema.StreamReader[*schema.Message]
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var streamErr error
		stream, streamErr = rl.original.Stream(ctx, messages, options...)
		return streamErr
	})
	return stream, err
}

// WithTools 代理WithTools方法，新模型共享同一个限流器
func (rl *RateLimitedLLMModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	newModel, err := rl.original.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &RateLimitedLLMModel{
		original:    newModel,
		rateLimiter: rl.rateLimiter,
	}, nil
}

// Policy 限流与重试参数
type Policy struct {
	QPM        int
	MaxRetries int
	RetryWait  time.Duration
}

// NewLLMWithRateLimit 按策略创建带限流的LLM模型，未设置的参数使用默认值
func NewLLMWithRateLimit(original model.ToolCallingChatModel, policy Policy, logger zerolog.Logger) *RateLimitedLLMModel {
	qpm := policy.QPM
	if qpm <= 0 {
		qpm = DefaultQPM
	}
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}

	return NewRateLimitedLLMModel(original, qpm).
		WithRetryPolicy(policy.RetryWait, maxRetries).
		WithLogger(logger)
}

var _ model.ToolCallingChatModel = (*RateLimitedLLMModel)(nil)
