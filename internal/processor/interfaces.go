package processor

import (
	"context"

	"resume-parser-go/internal/types"
)

// TextExtractor 从文档中提取原始文本
type TextExtractor interface {
	ExtractText(ctx context.Context, doc types.Document) (string, error)
}

// SectionExtractor 对清洗后的文本逐章节调用LLM
type SectionExtractor interface {
	Extract(ctx context.Context, text string) (types.SectionResponses, error)
}

// ResponseCache LLM章节回复缓存
type ResponseCache interface {
	// Lookup 查找缓存，未命中时返回 false
	Lookup(ctx context.Context, modelName string, section types.SectionName, text string) (string, bool, error)
	// Store 写入缓存
	Store(ctx context.Context, modelName string, section types.SectionName, text string, response string) error
}

// RecordSink 把记录集合写入目标位置
type RecordSink interface {
	Write(ctx context.Context, collection types.ResumeCollection, destination string) error
}

// ReportPublisher 在结果文件写入后发布批处理结果（归档、入库等）
type ReportPublisher interface {
	Name() string
	Publish(ctx context.Context, summary *types.BatchSummary) error
}
