package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/ratelimit"
)

// DefaultTemperature 抽取任务使用的默认温度
const DefaultTemperature float32 = 0.2

// 支持的模型提供方
const (
	ProviderGemini = "gemini"
	ProviderQwen   = "qwen"
)

// NewChatModel 根据配置创建模型并包装限流与重试
func NewChatModel(ctx context.Context, cfg config.LLMConfig, logger zerolog.Logger) (model.ToolCallingChatModel, error) {
	base, err := newProviderModel(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	policy := ratelimit.Policy{
		QPM:        cfg.QPM,
		MaxRetries: cfg.MaxRetries,
		RetryWait:  time.Duration(cfg.RetryWaitSeconds) * time.Second,
	}
	logger.Info().
		Str("provider", cfg.Provider).
		Str("model", ModelNameOf(base, cfg.Model)).
		Int("qpm", cfg.QPM).
		Int("max_retries", cfg.MaxRetries).
		Msg("LLM模型已初始化")
	return ratelimit.NewLLMWithRateLimit(base, policy, logger), nil
}

// ModelNameOf 返回模型实际使用的名称，模型未提供时返回 fallback
func ModelNameOf(m model.BaseChatModel, fallback string) string {
	if named, ok := m.(interface{ ModelName() string }); ok {
		if name := named.ModelName(); name != "" {
			return name
		}
	}
	return fallback
}

func newProviderModel(ctx context.Context, cfg config.LLMConfig, logger zerolog.Logger) (model.ToolCallingChatModel, error) {
	temperature := float32(cfg.Temperature)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini, "":
		return NewGeminiChatModel(ctx, cfg.APIKey, cfg.Model,
			WithGeminiTemperature(temperature),
			WithGeminiLogger(logger))
	case ProviderQwen, "openai":
		return NewAliyunQwenChatModel(cfg.APIKey, cfg.Model, cfg.APIURL,
			WithQwenTemperature(temperature),
			WithQwenLogger(logger))
	default:
		return nil, fmt.Errorf("不支持的LLM提供方: %s", cfg.Provider)
	}
}
