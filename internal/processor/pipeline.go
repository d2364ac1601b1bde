package processor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

// Pipeline 串联目录扫描、批处理、结果写入和结果发布
type Pipeline struct {
	batch      *BatchProcessor
	sink       RecordSink
	outputPath string
	publishers []ReportPublisher
	logger     zerolog.Logger
}

// PipelineOpt Pipeline 的配置选项
type PipelineOpt func(*Pipeline)

// WithPublisher 添加结果发布器，nil 会被忽略
func WithPublisher(publisher ReportPublisher) PipelineOpt {
	return func(p *Pipeline) {
		if publisher != nil {
			p.publishers = append(p.publishers, publisher)
		}
	}
}

// WithPipelineLogger 设置日志记录器
func WithPipelineLogger(logger zerolog.Logger) PipelineOpt {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline 创建处理流水线
func NewPipeline(batch *BatchProcessor, sink RecordSink, outputPath string, opts ...PipelineOpt) (*Pipeline, error) {
	if batch == nil {
		return nil, fmt.Errorf("未配置批处理器")
	}
	if sink == nil {
		return nil, fmt.Errorf("未配置结果写入器")
	}
	if outputPath == "" {
		return nil, fmt.Errorf("输出路径不能为空")
	}

	p := &Pipeline{
		batch:      batch,
		sink:       sink,
		outputPath: outputPath,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run 处理输入目录中的全部简历。
// 没有成功记录时不写文件，只记录提示；写文件失败返回 SinkWriteError；发布失败只记录警告。
func (p *Pipeline) Run(ctx context.Context, inputDir string) (*types.BatchSummary, error) {
	ctx, span := tracing.Tracer().Start(ctx, "resume.pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("pipeline.input_dir", inputDir))

	docs, err := DiscoverDocuments(inputDir)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, err
	}
	p.logger.Info().Str("input_dir", inputDir).Int("documents", len(docs)).Msg("扫描输入目录完成")

	summary := p.batch.Run(ctx, docs)
	records := summary.Records()
	if len(records) == 0 {
		p.logger.Warn().Msg(summary.Report())
		return summary, nil
	}

	if err := p.sink.Write(ctx, records, p.outputPath); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeSink)
		return summary, err
	}
	summary.OutputPath = p.outputPath

	for _, publisher := range p.publishers {
		if err := publisher.Publish(ctx, summary); err != nil {
			p.logger.Warn().Err(err).Str("publisher", publisher.Name()).Msg("发布处理结果失败")
			continue
		}
		p.logger.Info().Str("publisher", publisher.Name()).Msg("处理结果已发布")
	}

	p.logger.Info().Msg(summary.Report())
	return summary, nil
}
