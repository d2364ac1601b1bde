package parser

import (
	"context"
	"fmt"

	"resume-parser-go/internal/types"
)

// FileTextExtractor 从单一格式文件中提取文本
type FileTextExtractor interface {
	ExtractFromFile(ctx context.Context, filePath string) (string, error)
}

// DocumentTextExtractor 根据文档格式分派到对应的提取器
type DocumentTextExtractor struct {
	extractors map[types.DocumentFormat]FileTextExtractor
}

// NewDocumentTextExtractor 创建按格式分派的文本提取器
func NewDocumentTextExtractor(pdfExtractor, docxExtractor FileTextExtractor) *DocumentTextExtractor {
	return &DocumentTextExtractor{
		extractors: map[types.DocumentFormat]FileTextExtractor{
			types.FormatPDF:  pdfExtractor,
			types.FormatDOCX: docxExtractor,
		},
	}
}

// NewDefaultDocumentTextExtractor 使用默认的PDF和DOCX提取器
func NewDefaultDocumentTextExtractor(ctx context.Context, options ...PDFOption) (*DocumentTextExtractor, error) {
	pdfExtractor, err := NewPDFTextExtractor(ctx, options...)
	if err != nil {
		return nil, err
	}
	return NewDocumentTextExtractor(pdfExtractor, NewDocxTextExtractor()), nil
}

// ExtractText 提取文档原始文本，失败时返回 TextExtractionError
func (d *DocumentTextExtractor) ExtractText(ctx context.Context, doc types.Document) (string, error) {
	extractor, ok := d.extractors[doc.Format]
	if !ok || extractor == nil {
		return "", types.NewTextExtractionError(doc.Name, fmt.Errorf("%w: %s", types.ErrUnsupportedFormat, doc.Format))
	}
	text, err := extractor.ExtractFromFile(ctx, doc.Path)
	if err != nil {
		return "", types.NewTextExtractionError(doc.Name, err)
	}
	return text, nil
}
