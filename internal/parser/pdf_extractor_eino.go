package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// 单个PDF解析的默认超时
const defaultPDFParseTimeout = 30 * time.Second

// PDFTextExtractor 使用 Eino PDF Parser 提取文本，失败或结果为空时回退到 ledongthuc/pdf
type PDFTextExtractor struct {
	parser      *pdf.PDFParser
	logger      zerolog.Logger
	timeout     time.Duration
	useFallback bool
}

// PDFOption PDF提取器的配置选项
type PDFOption func(*PDFTextExtractor)

// WithPDFLogger 配置日志记录器
func WithPDFLogger(logger zerolog.Logger) PDFOption {
	return func(e *PDFTextExtractor) {
		e.logger = logger
	}
}

// WithPDFTimeout 配置单个文件的解析超时
func WithPDFTimeout(timeout time.Duration) PDFOption {
	return func(e *PDFTextExtractor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithPDFFallback 是否启用 ledongthuc/pdf 回退解析
func WithPDFFallback(enabled bool) PDFOption {
	return func(e *PDFTextExtractor) {
		e.useFallback = enabled
	}
}

// NewPDFTextExtractor 初始化PDF文本提取器。
// 不按页面分割，获取整个文档的连续文本。
func NewPDFTextExtractor(ctx context.Context, options ...PDFOption) (*PDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Eino PDF解析器失败: %w", err)
	}

	extractor := &PDFTextExtractor{
		parser:      p,
		logger:      zerolog.Nop(),
		timeout:     defaultPDFParseTimeout,
		useFallback: true,
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// ExtractFromFile 从PDF文件提取完整文本
func (e *PDFTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("读取PDF文件 %s 失败: %w", filePath, err)
	}
	e.logger.Debug().
		Str("file", filePath).
		Float64("size_mb", float64(len(data))/1024/1024).
		Msg("开始处理PDF文件")
	return e.ExtractFromBytes(ctx, data, filePath)
}

// ExtractFromBytes 从PDF字节内容提取文本。
// 每次解析都受 timeout 限制，超时或解析器 panic 时返回错误，不会阻塞调用方。
func (e *PDFTextExtractor) ExtractFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	startTime := time.Now()

	text, err := runGuarded(ctx, e.timeout, func() (string, error) {
		return e.extractWithEino(ctx, bytes.NewReader(data), uri)
	})
	if err == nil && strings.TrimSpace(text) != "" {
		e.logger.Debug().
			Str("uri", uri).
			Int("chars", len(text)).
			Dur("duration", time.Since(startTime)).
			Msg("PDF提取完成")
		return text, nil
	}
	if err == nil {
		err = fmt.Errorf("PDF %s 未提取到文本", uri)
	}
	if !e.useFallback || ctx.Err() != nil {
		return "", err
	}

	e.logger.Warn().Err(err).Str("uri", uri).Msg("Eino PDF解析无结果，回退到ledongthuc/pdf")
	fallbackText, fallbackErr := runGuarded(ctx, e.timeout, func() (string, error) {
		return extractWithLedongthuc(data)
	})
	if fallbackErr == nil && strings.TrimSpace(fallbackText) == "" {
		fallbackErr = errors.New("未提取到文本")
	}
	if fallbackErr != nil {
		return "", fmt.Errorf("PDF解析失败: %w; 回退解析失败: %v", err, fallbackErr)
	}
	e.logger.Debug().
		Str("uri", uri).
		Int("chars", len(fallbackText)).
		Dur("duration", time.Since(startTime)).
		Msg("PDF回退提取完成")
	return fallbackText, nil
}

type extractResult struct {
	text string
	err  error
}

// runGuarded 在独立的goroutine中执行解析，超时或上下文取消时立即返回。
// 第三方PDF库不检查ctx，遇到损坏的页面树可能死循环，超时后该goroutine会被放弃。
func runGuarded(ctx context.Context, timeout time.Duration, fn func() (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 带缓冲，放弃后解析结束也不会阻塞
	resultCh := make(chan extractResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- extractResult{err: fmt.Errorf("PDF解析器panic: %v", r)}
			}
		}()
		text, err := fn()
		resultCh <- extractResult{text: text, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.text, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("PDF解析超时(%s): %w", timeout, ctx.Err())
	}
}

func (e *PDFTextExtractor) extractWithEino(ctx context.Context, reader io.Reader, uri string) (string, error) {
	docs, err := e.parser.Parse(ctx, reader,
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{
			"source_file_path": uri,
			"extraction_time":  time.Now().Format(time.RFC3339),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("eino PDF解析器处理 %s 失败: %w", uri, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("eino PDF解析器未返回任何文档: %s", uri)
	}

	// 多个文档时按页顺序拼接
	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(doc.Content)
	}
	return sb.String(), nil
}

func extractWithLedongthuc(data []byte) (string, error) {
	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("读取pdf失败: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
