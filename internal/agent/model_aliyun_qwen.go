package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-parser-go/internal/tracing"
)

const (
	// OpenAI-compatible API endpoint for DashScope
	openAICompatibleQwenAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName       = "qwen-plus"
	defaultHTTPTimeout         = 120 * time.Second
)

// ErrToolsNotSupported 章节抽取只做纯文本问答，不绑定工具
var ErrToolsNotSupported = errors.New("该模型客户端不支持工具调用")

// AliyunQwenChatModel 通过 OpenAI 兼容接口调用通义千问（或其他兼容服务）
type AliyunQwenChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature float32
	httpClient  *http.Client
	logger      zerolog.Logger
}

// QwenOption AliyunQwenChatModel 的配置选项
type QwenOption func(*AliyunQwenChatModel)

// WithQwenHTTPClient 使用自定义 http.Client
func WithQwenHTTPClient(client *http.Client) QwenOption {
	return func(aq *AliyunQwenChatModel) {
		if client != nil {
			aq.httpClient = client
		}
	}
}

// WithQwenTemperature 设置默认采样温度
func WithQwenTemperature(temperature float32) QwenOption {
	return func(aq *AliyunQwenChatModel) {
		aq.temperature = temperature
	}
}

// WithQwenLogger 设置日志记录器
func WithQwenLogger(logger zerolog.Logger) QwenOption {
	return func(aq *AliyunQwenChatModel) {
		aq.logger = logger
	}
}

// NewAliyunQwenChatModel 创建一个新的 AliyunQwenChatModel 实例
func NewAliyunQwenChatModel(apiKey string, modelName string, apiURL string, opts ...QwenOption) (*AliyunQwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultQwenModelName
	}

	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = openAICompatibleQwenAPIURL
	}

	aq := &AliyunQwenChatModel{
		apiKey:      apiKey,
		modelName:   mn,
		apiURL:      url,
		temperature: DefaultTemperature,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(aq)
	}

	aq.logger.Info().Str("api_url", url).Str("model", mn).Msg("使用OpenAI兼容LLM客户端")
	return aq, nil
}

// --- OpenAI Compatible Request/Response Structures ---

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature *float32            `json:"temperature,omitempty"`
	TopP        *float32            `json:"top_p,omitempty"`
	MaxTokens   *int                `json:"max_tokens,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
}

type openAIResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type openAIChatChoice struct {
	Index        int                   `json:"index"`
	Message      openAIResponseMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAICompletionResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []openAIChatChoice `json:"choices"`
	Usage   *openAIUsage       `json:"usage,omitempty"`
}

// Generate 实现 model.BaseChatModel 接口
func (aq *AliyunQwenChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	temperature := aq.temperature
	modelName := aq.modelName
	opts := model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		Model:       &modelName,
	}, options...)

	ctx, span := tracing.Tracer().Start(ctx, "llm.qwen.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", *opts.Model),
			attribute.Int("llm.messages", len(messages)),
		))
	defer span.End()

	reqPayload := openAIChatCompletionRequest{
		Model:       *opts.Model,
		Messages:    make([]openAIChatMessage, 0, len(messages)),
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxTokens,
		Stop:        opts.Stop,
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		reqPayload.Messages = append(reqPayload.Messages, openAIChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, aq.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+aq.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	aq.logger.Debug().Str("model", reqPayload.Model).Int("request_bytes", len(jsonData)).Msg("发送LLM请求")

	httpResp, err := aq.httpClient.Do(httpReq)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, tracing.TruncateString(string(bodyBytes), tracing.DefaultMaxLength))
		tracing.RecordHTTPError(span, apiErr, httpResp.StatusCode)
		return nil, apiErr
	}

	var openAIResp openAICompletionResponse
	if err := json.Unmarshal(bodyBytes, &openAIResp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(openAIResp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项: %s", tracing.TruncateString(string(bodyBytes), tracing.DefaultMaxLength))
	}

	apiMessage := openAIResp.Choices[0].Message
	responseContent := ""
	if apiMessage.Content != nil {
		responseContent = *apiMessage.Content
	}

	result := schema.AssistantMessage(responseContent, nil)
	result.ResponseMeta = &schema.ResponseMeta{FinishReason: openAIResp.Choices[0].FinishReason}
	if openAIResp.Usage != nil {
		result.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     openAIResp.Usage.PromptTokens,
			CompletionTokens: openAIResp.Usage.CompletionTokens,
			TotalTokens:      openAIResp.Usage.TotalTokens,
		}
		span.SetAttributes(attribute.Int("llm.total_tokens", openAIResp.Usage.TotalTokens))
	}

	aq.logger.Debug().Int("response_chars", len(responseContent)).Msg("收到LLM响应")
	return result, nil
}

// Stream 实现 model.BaseChatModel 接口，将完整回复包装为单帧流
func (aq *AliyunQwenChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := aq.Generate(ctx, messages, options...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (aq *AliyunQwenChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if len(tools) == 0 {
		return aq, nil
	}
	return nil, ErrToolsNotSupported
}

// ModelName 返回使用的模型名
func (aq *AliyunQwenChatModel) ModelName() string {
	return aq.modelName
}

var _ model.ToolCallingChatModel = (*AliyunQwenChatModel)(nil)
