package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

// SectionDriver 按固定顺序对每个章节调用一次LLM，原样保存回复。
// 自身不做重试，重试由限流模型代理负责。
type SectionDriver struct {
	model     model.BaseChatModel
	templates map[types.SectionName]prompt.ChatTemplate
	modelName string
	cache     ResponseCache
	timeout   time.Duration
	logger    zerolog.Logger
}

// DriverOpt SectionDriver 的配置选项
type DriverOpt func(*SectionDriver)

// WithDriverCache 设置章节回复缓存
func WithDriverCache(cache ResponseCache, modelName string) DriverOpt {
	return func(d *SectionDriver) {
		d.cache = cache
		d.modelName = modelName
	}
}

// WithDriverTimeout 设置单次调用超时，0 表示不限制
func WithDriverTimeout(timeout time.Duration) DriverOpt {
	return func(d *SectionDriver) {
		d.timeout = timeout
	}
}

// WithDriverLogger 设置日志记录器
func WithDriverLogger(logger zerolog.Logger) DriverOpt {
	return func(d *SectionDriver) {
		d.logger = logger
	}
}

// NewSectionDriver 创建章节抽取驱动
func NewSectionDriver(chatModel model.BaseChatModel, opts ...DriverOpt) (*SectionDriver, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("LLM模型不能为空")
	}
	templates, err := NewSectionTemplates()
	if err != nil {
		return nil, err
	}

	d := &SectionDriver{
		model:     chatModel,
		templates: templates,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Extract 依次抽取六个章节，任一调用失败即返回带章节信息的 LLMInvocationError
func (d *SectionDriver) Extract(ctx context.Context, text string) (types.SectionResponses, error) {
	responses := make(types.SectionResponses, len(types.AllSections))
	for _, section := range types.AllSections {
		response, err := d.extractSection(ctx, section, text)
		if err != nil {
			return nil, err
		}
		responses[section] = response
	}
	return responses, nil
}

func (d *SectionDriver) extractSection(ctx context.Context, section types.SectionName, text string) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "resume.section.extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("resume.section", string(section)),
		attribute.Int("resume.text_length", len(text)),
	)

	if cached, ok := d.lookupCache(ctx, section, text); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	tpl, ok := d.templates[section]
	if !ok {
		err := types.NewLLMInvocationError(section, fmt.Errorf("缺少提示词模板"))
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return "", err
	}
	messages, err := tpl.Format(ctx, map[string]any{TextVariable: text})
	if err != nil {
		err = types.NewLLMInvocationError(section, fmt.Errorf("渲染提示词失败: %w", err))
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return "", err
	}

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	startTime := time.Now()
	msg, err := d.model.Generate(callCtx, messages)
	if err != nil {
		err = types.NewLLMInvocationError(section, err)
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return "", err
	}
	if msg == nil {
		err = types.NewLLMInvocationError(section, fmt.Errorf("模型返回了空消息"))
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return "", err
	}

	d.logger.Debug().
		Str("section", string(section)).
		Int("response_chars", len(msg.Content)).
		Dur("duration", time.Since(startTime)).
		Msg("章节抽取完成")

	d.storeCache(ctx, section, text, msg.Content)
	return msg.Content, nil
}

// lookupCache 缓存错误只记录日志，不影响抽取
func (d *SectionDriver) lookupCache(ctx context.Context, section types.SectionName, text string) (string, bool) {
	if d.cache == nil {
		return "", false
	}
	cached, ok, err := d.cache.Lookup(ctx, d.modelName, section, text)
	if err != nil {
		d.logger.Warn().Err(err).Str("section", string(section)).Msg("读取LLM回复缓存失败")
		return "", false
	}
	return cached, ok
}

func (d *SectionDriver) storeCache(ctx context.Context, section types.SectionName, text, response string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Store(ctx, d.modelName, section, text, response); err != nil {
		d.logger.Warn().Err(err).Str("section", string(section)).Msg("写入LLM回复缓存失败")
	}
}
