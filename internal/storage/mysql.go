package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/storage/models"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

var mysqlTracer = otel.Tracer("resume-parser-go/storage/mysql")

// mirrorBatchSize 每批插入的行数
const mirrorBatchSize = 100

type spanContextKey struct{}

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("INSERT")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}
	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}
		if sqlStatement := db.Statement.SQL.String(); sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(attribute.String("db.statement", tracing.SafeSQL(sqlStatement))))
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName), opts...)
		db.Statement.Context = context.WithValue(newCtx, spanContextKey{}, span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.Context == nil {
			return
		}
		span, ok := db.Statement.Context.Value(spanContextKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
				return
			}
			tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// RecordMirror 把每次批处理的成功记录镜像到MySQL，便于查询
type RecordMirror struct {
	db     *gorm.DB
	dbName string
	logger zerolog.Logger
}

// NewRecordMirror 连接MySQL，注册追踪插件并迁移镜像表
func NewRecordMirror(cfg config.MySQLConfig, log zerolog.Logger) (*RecordMirror, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=10s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := db.AutoMigrate(&models.ParsedResume{}); err != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Info().Str("database", cfg.Database).Msg("成功连接到MySQL并迁移镜像表")
	return NewRecordMirrorWithDB(db, cfg.Database, log), nil
}

// NewRecordMirrorWithDB 使用已有的GORM连接创建镜像，不做迁移
func NewRecordMirrorWithDB(db *gorm.DB, dbName string, log zerolog.Logger) *RecordMirror {
	return &RecordMirror{db: db, dbName: dbName, logger: log}
}

// Name 实现 processor.ReportPublisher
func (m *RecordMirror) Name() string {
	return "mysql"
}

// Publish 批量插入本次运行的所有成功记录
func (m *RecordMirror) Publish(ctx context.Context, summary *types.BatchSummary) error {
	if summary == nil {
		return errors.New("批处理结果为空")
	}

	ctx, span := mysqlTracer.Start(ctx, "RecordMirror.Publish", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	rows, err := BuildParsedResumes(summary)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return err
	}
	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.dbName),
		attribute.String("db.sql.table", constants.ParsedResumeTable),
		attribute.Int("batch.size", len(rows)),
	)
	if len(rows) == 0 {
		span.SetStatus(codes.Ok, "no records to insert")
		return nil
	}

	if err := m.db.WithContext(ctx).CreateInBatches(&rows, mirrorBatchSize).Error; err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return fmt.Errorf("批量写入解析结果失败: %w", err)
	}
	span.SetStatus(codes.Ok, "")

	m.logger.Info().Str("run_id", summary.RunID).Int("rows", len(rows)).Msg("解析结果已写入MySQL")
	return nil
}

// Close 关闭数据库连接
func (m *RecordMirror) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// BuildParsedResumes 把批处理的成功记录转换为镜像表行
func BuildParsedResumes(summary *types.BatchSummary) ([]models.ParsedResume, error) {
	records := summary.Records()
	rows := make([]models.ParsedResume, 0, len(records))
	for _, record := range records {
		fields := record.Fields
		if fields == nil {
			fields = types.NewFields()
		}
		data, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("序列化 %s 的字段失败: %w", record.SourceFile, err)
		}
		rows = append(rows, models.ParsedResume{
			RunID:      summary.RunID,
			SourceFile: record.SourceFile,
			Title:      fields.GetString(types.FieldTitle),
			Fields:     datatypes.JSON(data),
			CreatedAt:  summary.FinishedAt,
		})
	}
	return rows, nil
}
