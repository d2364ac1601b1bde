package tracing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// InstrumentationName 本项目tracer的名称
const InstrumentationName = "resume-parser-go"

// ProviderConfig OTLP导出配置
type ProviderConfig struct {
	Endpoint       string // OTLP gRPC collector 地址，例如 localhost:4317
	ServiceName    string
	ServiceVersion string
}

// ShutdownFunc 关闭tracer provider并刷新剩余span
type ShutdownFunc func(ctx context.Context) error

// InitProvider 初始化全局 TracerProvider，通过 gRPC 把 span 导出到 OTLP collector
func InitProvider(ctx context.Context, cfg ProviderConfig) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("tracing endpoint 不能为空")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = InstrumentationName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}

	conn, err := grpc.DialContext(ctx, cfg.Endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("连接OTLP collector失败: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建trace exporter失败: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建resource失败: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(exporter, sdktrace.WithBatchTimeout(5*time.Second))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		shutdownErr := provider.Shutdown(ctx)
		if closeErr := conn.Close(); closeErr != nil && shutdownErr == nil {
			shutdownErr = closeErr
		}
		return shutdownErr
	}, nil
}

// Tracer 返回本项目使用的tracer，未初始化provider时为no-op实现
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
