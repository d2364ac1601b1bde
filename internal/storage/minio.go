package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
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

var minioTracer = otel.Tracer("resume-parser-go/storage/minio")

// csvContentType 结果文件的内容类型
const csvContentType = "text/csv"

// ReportArchive 把每次批处理生成的结果文件归档到MinIO
type ReportArchive struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewReportArchive 创建MinIO客户端并确保存储桶存在
func NewReportArchive(ctx context.Context, cfg config.MinIOConfig, logger zerolog.Logger) (*ReportArchive, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint不能为空")
	}
	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("初始化MinIO客户端")

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	a := &ReportArchive{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}
	if err := a.ensureBucketExists(ctx, cfg.Location); err != nil {
		return nil, err
	}
	return a, nil
}

// ensureBucketExists 确保存储桶存在
func (a *ReportArchive) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", a.bucket, err)
	}
	if exists {
		a.logger.Debug().Str("bucket", a.bucket).Msg("存储桶已存在")
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", a.bucket, err)
	}
	a.logger.Info().Str("bucket", a.bucket).Msg("存储桶创建成功")
	return nil
}

// Name 实现 processor.ReportPublisher
func (a *ReportArchive) Name() string {
	return "minio"
}

// Publish 上传结果文件，对象名为 reports/{runID}/{文件名}
func (a *ReportArchive) Publish(ctx context.Context, summary *types.BatchSummary) error {
	if summary == nil || summary.OutputPath == "" {
		return errors.New("没有可归档的结果文件")
	}
	objectName := ReportObjectName(summary)

	ctx, span := minioTracer.Start(ctx, "ReportArchive.Publish", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("object_storage.bucket", a.bucket),
		attribute.String("object_storage.object", objectName),
	)

	info, err := a.client.FPutObject(ctx, a.bucket, objectName, summary.OutputPath, minio.PutObjectOptions{ContentType: csvContentType})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStorage)
		return fmt.Errorf("上传对象 %s/%s 失败: %w", a.bucket, objectName, err)
	}
	span.SetAttributes(attribute.Int64("object_storage.size", info.Size))
	span.SetStatus(codes.Ok, "")

	a.logger.Info().
		Str("bucket", a.bucket).
		Str("object", objectName).
		Int64("size", info.Size).
		Msg("结果文件已归档")
	return nil
}

// ReportObjectName 返回批处理结果在存储桶中的对象名
func ReportObjectName(summary *types.BatchSummary) string {
	return path.Join(constants.ReportObjectPrefix, summary.RunID, filepath.Base(summary.OutputPath))
}
