package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

var redisTracer = otel.Tracer("resume-parser-go/storage/redis")

// ResponseCache 基于Redis的LLM章节回复缓存。
// 键由模型名、章节名和清洗后文本的SHA-256组成，相同输入不会重复调用LLM。
type ResponseCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// CacheOption ResponseCache 的配置选项
type CacheOption func(*ResponseCache)

// WithCacheTTL 设置缓存过期时间，0 表示永不过期
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *ResponseCache) {
		c.ttl = ttl
	}
}

// WithCachePrefix 设置键前缀
func WithCachePrefix(prefix string) CacheOption {
	return func(c *ResponseCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithCacheLogger 设置日志记录器
func WithCacheLogger(logger zerolog.Logger) CacheOption {
	return func(c *ResponseCache) {
		c.logger = logger
	}
}

// NewResponseCache 连接Redis并创建回复缓存
func NewResponseCache(ctx context.Context, cfg config.CacheConfig, opts ...CacheOption) (*ResponseCache, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	opts = append([]CacheOption{
		WithCachePrefix(cfg.KeyPrefix),
		WithCacheTTL(cfg.TTL()),
	}, opts...)
	return NewResponseCacheWithClient(client, opts...), nil
}

// NewResponseCacheWithClient 使用已有的客户端创建回复缓存
func NewResponseCacheWithClient(client redis.UniversalClient, opts ...CacheOption) *ResponseCache {
	c := &ResponseCache{
		client: client,
		prefix: "resume_parser",
		ttl:    constants.DefaultResponseCacheTTL,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key 返回某个模型、章节和文本对应的缓存键
func (c *ResponseCache) Key(modelName string, section types.SectionName, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf(constants.KeyLLMSectionResponse, c.prefix, modelName, section, hex.EncodeToString(sum[:]))
}

// Lookup 查找缓存，键不存在时返回 false 且没有错误
func (c *ResponseCache) Lookup(ctx context.Context, modelName string, section types.SectionName, text string) (string, bool, error) {
	if c.client == nil {
		return "", false, fmt.Errorf("redis客户端未初始化")
	}
	key := c.Key(modelName, section, text)

	ctx, span := redisTracer.Start(ctx, "ResponseCache.Lookup", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "GET"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
		attribute.String("resume.section", string(section)),
	)

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		// key不存在不算错误
		if errors.Is(err, redis.Nil) {
			span.SetStatus(codes.Ok, "key not found")
			span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			return "", false, nil
		}
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return "", false, fmt.Errorf("读取缓存 %s 失败: %w", key, err)
	}

	span.SetAttributes(
		attribute.Bool("db.redis.key_exists", true),
		attribute.Int("db.redis.value_length", len(val)),
	)
	span.SetStatus(codes.Ok, "")
	c.logger.Debug().Str("section", string(section)).Msg("命中章节回复缓存")
	return val, true, nil
}

// Store 写入缓存
func (c *ResponseCache) Store(ctx context.Context, modelName string, section types.SectionName, text string, response string) error {
	if c.client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	key := c.Key(modelName, section, text)

	ctx, span := redisTracer.Start(ctx, "ResponseCache.Store", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "SET"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
		attribute.Int("db.redis.value_length", len(response)),
	)
	if c.ttl > 0 {
		span.SetAttributes(attribute.Int64("db.redis.expiration_ms", c.ttl.Milliseconds()))
	}

	if err := c.client.Set(ctx, key, response, c.ttl).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("写入缓存 %s 失败: %w", key, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Close 关闭Redis连接
func (c *ResponseCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
