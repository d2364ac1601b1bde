package processor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/parser"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

// Components 批处理依赖的功能组件
type Components struct {
	Extractor TextExtractor    // 文档文本提取
	Driver    SectionExtractor // 章节抽取
}

// Settings 批处理的纯配置项
type Settings struct {
	Workers int            // 并发处理的文档数，<=1 表示顺序处理
	Logger  zerolog.Logger // 日志记录器
	Now     func() time.Time
}

// SettingOpt 设置选项类型
type SettingOpt func(*Settings)

// WithWorkers 设置并发文档数
func WithWorkers(workers int) SettingOpt {
	return func(s *Settings) {
		s.Workers = workers
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		s.Logger = logger
	}
}

// WithClock 设置时间来源
func WithClock(now func() time.Time) SettingOpt {
	return func(s *Settings) {
		if now != nil {
			s.Now = now
		}
	}
}

// BatchProcessor 逐个处理文档并汇总结果。单个文档失败只记录日志，不会中断整个批次。
type BatchProcessor struct {
	components Components
	settings   Settings
}

// NewBatchProcessor 创建批处理器
func NewBatchProcessor(components Components, opts ...SettingOpt) (*BatchProcessor, error) {
	if components.Extractor == nil {
		return nil, fmt.Errorf("未配置文本提取器")
	}
	if components.Driver == nil {
		return nil, fmt.Errorf("未配置章节抽取驱动")
	}

	settings := Settings{
		Workers: 1,
		Logger:  zerolog.Nop(),
		Now:     time.Now,
	}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	return &BatchProcessor{components: components, settings: settings}, nil
}

// Run 按列表顺序处理所有文档。返回的 Results 与 docs 一一对应；
// 上下文取消后尚未开始的文档以取消错误记为失败。
func (p *BatchProcessor) Run(ctx context.Context, docs []types.Document) *types.BatchSummary {
	summary := &types.BatchSummary{
		RunID:     uuid.NewString(),
		StartedAt: p.settings.Now(),
		Results:   make([]types.DocumentResult, len(docs)),
	}

	ctx, span := tracing.Tracer().Start(ctx, "resume.batch.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.run_id", summary.RunID),
		attribute.Int("batch.documents", len(docs)),
		attribute.Int("batch.workers", p.settings.Workers),
	)

	logger := p.settings.Logger.With().Str("run_id", summary.RunID).Logger()
	logger.Info().Int("documents", len(docs)).Int("workers", p.settings.Workers).Msg("开始批量处理简历")

	var done atomic.Int64
	process := func(i int) {
		result := p.processDocument(ctx, docs[i])
		summary.Results[i] = result
		n := done.Add(1)
		if result.OK() {
			logger.Info().
				Str("file", docs[i].Name).
				Dur("duration", result.Duration).
				Msgf("已处理 %d/%d", n, len(docs))
		} else {
			logger.Error().
				Err(result.Err).
				Str("file", docs[i].Name).
				Msgf("处理简历失败 (%d/%d)", n, len(docs))
		}
	}

	if p.settings.Workers <= 1 {
		for i := range docs {
			if err := ctx.Err(); err != nil {
				markCancelled(summary.Results, docs, i, err)
				break
			}
			process(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.settings.Workers)
		for i := range docs {
			if err := ctx.Err(); err != nil {
				markCancelled(summary.Results, docs, i, err)
				break
			}
			g.Go(func() error {
				process(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	summary.FinishedAt = p.settings.Now()
	processed := len(summary.Records())
	failed := len(docs) - processed
	span.SetAttributes(
		attribute.Int("batch.processed", processed),
		attribute.Int("batch.failed", failed),
	)
	logger.Info().
		Int("processed", processed).
		Int("failed", failed).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("批量处理结束")
	return summary
}

// markCancelled 把从 start 开始尚未处理的文档标记为取消
func markCancelled(results []types.DocumentResult, docs []types.Document, start int, err error) {
	for j := start; j < len(docs); j++ {
		results[j] = types.DocumentResult{Document: docs[j], Err: err}
	}
}

// processDocument 提取、清洗、抽取、解析并合并单个文档。
// 任何组件panic都只记为该文档失败。
func (p *BatchProcessor) processDocument(ctx context.Context, doc types.Document) (result types.DocumentResult) {
	startTime := time.Now()
	result = types.DocumentResult{Document: doc}

	ctx, span := tracing.Tracer().Start(ctx, "resume.document.process",
		trace.WithAttributes(
			attribute.String("resume.file", doc.Name),
			attribute.String("resume.format", string(doc.Format)),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("处理简历 %s 时发生panic: %v", doc.Name, r)
			tracing.RecordError(span, err, tracing.ErrorTypeInternal)
			result = types.DocumentResult{Document: doc, Err: err, Duration: time.Since(startTime)}
		}
	}()

	fail := func(err error, errorType tracing.ErrorType) types.DocumentResult {
		tracing.RecordError(span, err, errorType)
		result.Err = err
		result.Duration = time.Since(startTime)
		return result
	}

	rawText, err := p.components.Extractor.ExtractText(ctx, doc)
	if err != nil {
		return fail(err, tracing.ErrorTypeExtraction)
	}

	text := parser.Normalize(rawText)

	responses, err := p.components.Driver.Extract(ctx, text)
	if err != nil {
		return fail(err, tracing.ErrorTypeLLM)
	}

	fields, err := p.mergeSections(doc, responses)
	if err != nil {
		return fail(err, tracing.ErrorTypeParse)
	}

	fields.Set(types.FieldSourceFile, doc.Name)
	fields.Set(types.FieldRawText, parser.Preview(text, constants.RawTextPreviewLength))

	result.Record = &types.ResumeRecord{SourceFile: doc.Name, Fields: fields}
	result.Duration = time.Since(startTime)
	span.SetAttributes(attribute.Int("resume.fields", fields.Len()))
	span.SetAttributes(candidateAttributes(fields)...)
	return result
}

// candidateAttributes 把个人信息等字符串字段写入span，隐私字段先做掩码
func candidateAttributes(fields *types.Fields) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for _, key := range fields.Keys() {
		switch key {
		case types.FieldProfessionalSummary, types.FieldSourceFile, types.FieldRawText:
			continue
		}
		value, ok := fields.Get(key)
		if !ok {
			continue
		}
		str, ok := value.(string)
		if !ok {
			continue
		}
		attrs = append(attrs, attribute.String("resume.candidate."+key, tracing.SafeAttributeValue(key, str, tracing.DefaultMaxLength)))
	}
	return attrs
}

// mergeSections 按章节顺序解析并合并，后面章节的同名字段覆盖前面的
func (p *BatchProcessor) mergeSections(doc types.Document, responses types.SectionResponses) (*types.Fields, error) {
	merged := types.NewFields()
	for _, section := range types.AllSections {
		fragment, err := parser.ParseSection(responses[section], section)
		if err != nil {
			return nil, err
		}
		if collisions := merged.Merge(fragment); len(collisions) > 0 {
			p.settings.Logger.Debug().
				Str("file", doc.Name).
				Str("section", string(section)).
				Strs("keys", collisions).
				Msg("章节字段覆盖了已有的同名字段")
		}
	}
	return merged, nil
}
