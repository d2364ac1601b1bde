package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-parser-go/internal/tracing"
)

// Tika请求的默认超时
const defaultTikaTimeout = 60 * time.Second

// tikaContentTypes 按扩展名设置的请求内容类型
var tikaContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// TikaTextExtractor 通过 Apache Tika Server 提取PDF和DOCX的纯文本
type TikaTextExtractor struct {
	serverURL string
	client    *http.Client
	logger    zerolog.Logger
}

// TikaOption Tika提取器的配置选项
type TikaOption func(*TikaTextExtractor)

// WithTikaTimeout 配置HTTP请求超时
func WithTikaTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaTextExtractor) {
		if timeout > 0 {
			e.client.Timeout = timeout
		}
	}
}

// WithTikaHTTPClient 使用自定义HTTP客户端
func WithTikaHTTPClient(client *http.Client) TikaOption {
	return func(e *TikaTextExtractor) {
		if client != nil {
			e.client = client
		}
	}
}

// WithTikaLogger 配置日志记录器
func WithTikaLogger(logger zerolog.Logger) TikaOption {
	return func(e *TikaTextExtractor) {
		e.logger = logger
	}
}

// NewTikaTextExtractor 创建Tika文本提取器，serverURL 例如 http://localhost:9998
func NewTikaTextExtractor(serverURL string, options ...TikaOption) *TikaTextExtractor {
	e := &TikaTextExtractor{
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    &http.Client{Timeout: defaultTikaTimeout},
		logger:    zerolog.Nop(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// ExtractFromFile 读取文件并发送到Tika，返回纯文本
func (e *TikaTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}
	return e.ExtractFromBytes(ctx, data, filepath.Base(filePath))
}

// ExtractFromBytes 把文件内容 PUT 到 /tika，按文件名决定内容类型
func (e *TikaTextExtractor) ExtractFromBytes(ctx context.Context, data []byte, name string) (string, error) {
	startTime := time.Now()
	ctx, span := tracing.Tracer().Start(ctx, "resume.extract.tika",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("resume.file", name),
			attribute.Int("resume.file_size", len(data)),
		))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.serverURL+"/tika", bytes.NewReader(data))
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if contentType, ok := tikaContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		req.Header.Set("Content-Type", contentType)
	}
	if name != "" {
		req.Header.Set("X-Tika-Resource-Name", name)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("tika服务器返回错误状态码 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		tracing.RecordHTTPError(span, err, resp.StatusCode)
		return "", err
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}

	text := strings.TrimSpace(string(textBytes))
	span.SetAttributes(attribute.Int("resume.text_length", len(text)))
	e.logger.Debug().
		Str("file", name).
		Int("chars", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("Tika文本提取完成")
	return text, nil
}
