package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"resume-parser-go/internal/agent"
	"resume-parser-go/internal/config"
	"resume-parser-go/internal/logger"
	"resume-parser-go/internal/parser"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/sink"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/tracing"
)

var (
	version     = "1.0.0"            //nolint:gochecknoglobals
	serviceName = "resume-parser-go" //nolint:gochecknoglobals
)

// 命令行参数
type options struct {
	configPath   string
	inputDir     string
	outputDir    string
	outputFile   string
	workers      int
	logLevel     string
	sampleConfig string
	extractFile  string
	maxLen       int
	showVersion  bool
}

func parseFlags() options {
	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", "", "配置文件路径，为空时在默认位置查找")
	pflag.StringVarP(&opts.inputDir, "input", "i", "", "待处理简历目录，覆盖配置中的 input_dir")
	pflag.StringVarP(&opts.outputDir, "output", "o", "", "结果输出目录，覆盖配置中的 output_dir")
	pflag.StringVar(&opts.outputFile, "output-file", "", "结果文件名，覆盖配置中的 output_file")
	pflag.IntVarP(&opts.workers, "workers", "w", 0, "并发处理的文档数，1 表示顺序处理")
	pflag.StringVar(&opts.logLevel, "log-level", "", "日志级别: debug, info, warn, error")
	pflag.StringVar(&opts.sampleConfig, "sample-config", "", "在指定路径生成示例配置文件后退出")
	pflag.StringVar(&opts.extractFile, "extract-file", "", "只提取并清洗指定文件的文本后退出，不调用LLM")
	pflag.IntVar(&opts.maxLen, "maxlen", 1000, "--extract-file 显示的最大字符数，设为-1显示全部")
	pflag.BoolVarP(&opts.showVersion, "version", "v", false, "显示版本信息")
	pflag.Parse()
	return opts
}

// applyFlags 命令行参数优先于配置文件和环境变量
func applyFlags(cfg *config.Config, opts options) {
	if opts.inputDir != "" {
		cfg.InputDir = opts.inputDir
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	if opts.outputFile != "" {
		cfg.OutputFile = opts.outputFile
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	if opts.logLevel != "" {
		cfg.Logger.Level = opts.logLevel
	}
}

func main() {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Printf("%s %s\n", serviceName, version)
		return
	}

	if opts.sampleConfig != "" {
		if err := config.CreateSampleConfig(opts.sampleConfig); err != nil {
			fmt.Fprintf(os.Stderr, "生成示例配置失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("示例配置已写入 %s\n", opts.sampleConfig)
		return
	}

	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, opts)

	log := logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.extractFile != "" {
		if err := runExtract(ctx, cfg, log, opts.extractFile, opts.maxLen); err != nil {
			log.Error().Err(err).Msg("提取文本失败")
			stop()
			os.Exit(1)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("配置校验失败")
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Error().Err(err).Msg("创建输入输出目录失败")
		os.Exit(1)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("简历处理失败")
		stop()
		os.Exit(1)
	}
}

// run 组装各组件并执行一次批处理
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitProvider(ctx, tracing.ProviderConfig{
			Endpoint:       cfg.Tracing.Endpoint,
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version,
		})
		if err != nil {
			log.Warn().Err(err).Msg("初始化OpenTelemetry失败，继续运行但不上报追踪数据")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("关闭TracerProvider失败")
				}
			}()
		}
	}

	chatModel, err := agent.NewChatModel(ctx, cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("初始化LLM模型失败: %w", err)
	}

	driverOpts := []processor.DriverOpt{
		processor.WithDriverTimeout(cfg.LLMTimeout()),
		processor.WithDriverLogger(log),
	}
	if cfg.Cache.Enabled {
		cache, err := storage.NewResponseCache(ctx, cfg.Cache, storage.WithCacheLogger(log))
		if err != nil {
			log.Warn().Err(err).Msg("连接Redis失败，不使用LLM回复缓存")
		} else {
			defer cache.Close()
			driverOpts = append(driverOpts, processor.WithDriverCache(cache, cfg.LLM.Provider+"/"+cfg.LLM.Model))
			log.Info().Str("address", cfg.Cache.Address).Msg("已启用LLM回复缓存")
		}
	}
	driver, err := processor.NewSectionDriver(chatModel, driverOpts...)
	if err != nil {
		return err
	}

	extractor, err := newTextExtractor(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("创建文本提取器失败: %w", err)
	}

	batch, err := processor.NewBatchProcessor(
		processor.Components{Extractor: extractor, Driver: driver},
		processor.WithWorkers(cfg.Workers),
		processor.WithLogger(log),
	)
	if err != nil {
		return err
	}

	pipelineOpts := []processor.PipelineOpt{processor.WithPipelineLogger(log)}
	if cfg.MinIO.Enabled {
		archive, err := storage.NewReportArchive(ctx, cfg.MinIO, log)
		if err != nil {
			log.Warn().Err(err).Msg("初始化MinIO失败，结果文件不会归档")
		} else {
			pipelineOpts = append(pipelineOpts, processor.WithPublisher(archive))
		}
	}
	if cfg.MySQL.Enabled {
		mirror, err := storage.NewRecordMirror(cfg.MySQL, log)
		if err != nil {
			log.Warn().Err(err).Msg("初始化MySQL失败，解析结果不会入库")
		} else {
			defer mirror.Close()
			pipelineOpts = append(pipelineOpts, processor.WithPublisher(mirror))
		}
	}

	pipeline, err := processor.NewPipeline(batch, sink.NewCSVSink(log), cfg.OutputPath(), pipelineOpts...)
	if err != nil {
		return err
	}

	summary, err := pipeline.Run(ctx, cfg.InputDir)
	if err != nil {
		return err
	}
	fmt.Println(summary.Report())
	return nil
}

// newTextExtractor 配置了Tika时两种格式都交给Tika，否则使用本地解析器
func newTextExtractor(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*parser.DocumentTextExtractor, error) {
	if cfg.Extractor.TikaURL != "" {
		tika := parser.NewTikaTextExtractor(cfg.Extractor.TikaURL,
			parser.WithTikaTimeout(cfg.ExtractTimeout()),
			parser.WithTikaLogger(log))
		log.Info().Str("tika_url", cfg.Extractor.TikaURL).Msg("使用Tika提取简历文本")
		return parser.NewDocumentTextExtractor(tika, tika), nil
	}
	return parser.NewDefaultDocumentTextExtractor(ctx,
		parser.WithPDFLogger(log),
		parser.WithPDFTimeout(cfg.ExtractTimeout()),
		parser.WithPDFFallback(!cfg.Extractor.DisableFallback))
}
