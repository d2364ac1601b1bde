package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"resume-parser-go/internal/tracing"
)

const defaultGeminiModelName = "gemini-2.0-flash"

// GeminiChatModel 基于 google.golang.org/genai 的 Gemini 模型，实现 eino 的 ChatModel 接口
type GeminiChatModel struct {
	client      *genai.Client
	modelName   string
	temperature float32
	logger      zerolog.Logger
}

// GeminiOption GeminiChatModel 的配置选项
type GeminiOption func(*GeminiChatModel)

// WithGeminiTemperature 设置默认采样温度
func WithGeminiTemperature(temperature float32) GeminiOption {
	return func(g *GeminiChatModel) {
		g.temperature = temperature
	}
}

// WithGeminiLogger 设置日志记录器
func WithGeminiLogger(logger zerolog.Logger) GeminiOption {
	return func(g *GeminiChatModel) {
		g.logger = logger
	}
}

// NewGeminiChatModel 使用 API Key 创建 Gemini 模型
func NewGeminiChatModel(ctx context.Context, apiKey, modelName string, opts ...GeminiOption) (*GeminiChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultGeminiModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Gemini客户端失败: %w", err)
	}

	g := &GeminiChatModel{
		client:      client,
		modelName:   modelName,
		temperature: DefaultTemperature,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.logger.Info().Str("model", modelName).Msg("使用Gemini LLM客户端")
	return g, nil
}

// Generate 实现 model.BaseChatModel 接口
func (g *GeminiChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	temperature := g.temperature
	modelName := g.modelName
	opts := model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		Model:       &modelName,
	}, options...)

	ctx, span := tracing.Tracer().Start(ctx, "llm.gemini.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", *opts.Model)))
	defer span.End()

	contents, systemInstruction := toGeminiContents(messages)
	if len(contents) == 0 {
		return nil, errors.New("没有可发送给Gemini的消息")
	}

	config := &genai.GenerateContentConfig{
		Temperature:       opts.Temperature,
		TopP:              opts.TopP,
		StopSequences:     opts.Stop,
		SystemInstruction: systemInstruction,
	}
	if opts.MaxTokens != nil {
		config.MaxOutputTokens = int32(*opts.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, *opts.Model, contents, config)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("Gemini生成内容失败: %w", err)
	}

	text := resp.Text()
	result := schema.AssistantMessage(text, nil)
	if resp.UsageMetadata != nil {
		result.ResponseMeta = &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
			},
		}
		span.SetAttributes(attribute.Int("llm.total_tokens", int(resp.UsageMetadata.TotalTokenCount)))
	}

	g.logger.Debug().Int("response_chars", len(text)).Msg("收到Gemini响应")
	return result, nil
}

// Stream 实现 model.BaseChatModel 接口，将完整回复包装为单帧流
func (g *GeminiChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := g.Generate(ctx, messages, options...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (g *GeminiChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if len(tools) == 0 {
		return g, nil
	}
	return nil, ErrToolsNotSupported
}

// ModelName 返回使用的模型名
func (g *GeminiChatModel) ModelName() string {
	return g.modelName
}

// toGeminiContents 把 eino 消息转换为 Gemini 的内容列表，system 消息合并为 SystemInstruction
func toGeminiContents(messages []*schema.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemParts []string
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			systemParts = append(systemParts, msg.Content)
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	var systemInstruction *genai.Content
	if len(systemParts) > 0 {
		systemInstruction = genai.NewContentFromText(strings.Join(systemParts, "\n"), genai.RoleUser)
	}
	return contents, systemInstruction
}

var _ model.ToolCallingChatModel = (*GeminiChatModel)(nil)
