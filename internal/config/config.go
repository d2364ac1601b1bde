package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"resume-parser-go/internal/constants"
)

// DefaultOutputFile 默认的汇总结果文件名
const DefaultOutputFile = "all_parsed_resumes.csv"

// Config 应用程序配置
type Config struct {
	InputDir   string `yaml:"input_dir"`   // 待处理简历目录
	OutputDir  string `yaml:"output_dir"`  // 结果输出目录
	OutputFile string `yaml:"output_file"` // 结果文件名
	Workers    int    `yaml:"workers"`     // 并发处理的文档数，1 表示顺序处理

	// 兼容旧配置中的顶层 google_api_key
	GoogleAPIKey string `yaml:"google_api_key,omitempty"`

	LLM       LLMConfig       `yaml:"llm"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Cache     CacheConfig     `yaml:"cache"`
	MinIO     MinIOConfig     `yaml:"minio"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Logger    LoggerConfig    `yaml:"logger"`
}

// LLMConfig 大模型调用配置
type LLMConfig struct {
	Provider         string  `yaml:"provider"` // gemini 或 qwen
	APIKey           string  `yaml:"api_key"`
	APIURL           string  `yaml:"api_url,omitempty"` // OpenAI兼容接口地址，仅 qwen 使用
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`    // 单次调用超时(秒)，0 表示不限制
	QPM              int     `yaml:"qpm"`                // 每分钟请求数限制
	MaxRetries       int     `yaml:"max_retries"`        // 最大重试次数
	RetryWaitSeconds int     `yaml:"retry_wait_seconds"` // 重试等待时间(秒)
}

// ExtractorConfig 文本提取配置
type ExtractorConfig struct {
	TikaURL         string `yaml:"tika_url"`         // 设置后PDF和DOCX都交给Tika Server提取
	TimeoutSeconds  int    `yaml:"timeout_seconds"`  // 单个文件的提取超时(秒)
	DisableFallback bool   `yaml:"disable_fallback"` // 关闭 ledongthuc/pdf 回退解析
}

// CacheConfig Redis响应缓存配置
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	TTLHours  int    `yaml:"ttl_hours"`
	KeyPrefix string `yaml:"key_prefix"`
}

// MinIOConfig 结果文件归档配置
type MinIOConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Bucket          string `yaml:"bucket"`
	Location        string `yaml:"location"` // 可选，存储桶区域
}

// MySQLConfig 解析结果镜像表配置
type MySQLConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// TracingConfig OpenTelemetry 配置
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"` // OTLP gRPC 地址
	ServiceName string `yaml:"service_name"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// DefaultSearchPaths 未指定配置文件时依次查找的位置
func DefaultSearchPaths() []string {
	paths := []string{
		filepath.Join("config", "config.yaml"),
		"config.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".resume-parser", "config.yaml"))
	}
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		paths = append(paths,
			filepath.Join(execDir, "config", "config.yaml"),
			filepath.Join(execDir, "config.yaml"),
		)
	}
	return paths
}

// LoadConfig 从文件加载配置并应用默认值和环境变量覆盖。
// configPath 为空时在默认位置查找，找不到则只使用默认值和环境变量。
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		for _, path := range DefaultSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
	}

	config := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("配置文件不存在: %s", configPath)
			}
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	applyEnvOverrides(config)
	applyDefaults(config)
	return config, nil
}

// applyEnvOverrides 从环境变量覆盖配置（如果存在）
func applyEnvOverrides(config *Config) {
	if envKey := os.Getenv("LLM_API_KEY"); envKey != "" {
		config.LLM.APIKey = envKey
	}
	if envProvider := os.Getenv("LLM_PROVIDER"); envProvider != "" {
		config.LLM.Provider = envProvider
	}
	if envModel := os.Getenv("LLM_MODEL"); envModel != "" {
		config.LLM.Model = envModel
	}
	if envDir := os.Getenv("RESUME_INPUT_DIR"); envDir != "" {
		config.InputDir = envDir
	}
	if envDir := os.Getenv("RESUME_OUTPUT_DIR"); envDir != "" {
		config.OutputDir = envDir
	}
	if envURL := os.Getenv("TIKA_URL"); envURL != "" {
		config.Extractor.TikaURL = envURL
	}

	// GOOGLE_API_KEY 和旧的顶层 google_api_key 只在未设置其他密钥时生效
	if config.LLM.APIKey == "" {
		if envKey := os.Getenv("GOOGLE_API_KEY"); envKey != "" {
			config.LLM.APIKey = envKey
		} else if config.GoogleAPIKey != "" {
			config.LLM.APIKey = config.GoogleAPIKey
		}
	}
}

// applyDefaults 设置默认值
func applyDefaults(config *Config) {
	if config.InputDir == "" {
		config.InputDir = "input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "output"
	}
	if config.OutputFile == "" {
		config.OutputFile = DefaultOutputFile
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "gemini"
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.QPM <= 0 {
		config.LLM.QPM = 30
	}
	if config.LLM.MaxRetries == 0 {
		config.LLM.MaxRetries = 3
	}
	if config.LLM.RetryWaitSeconds <= 0 {
		config.LLM.RetryWaitSeconds = 1
	}

	if config.Extractor.TimeoutSeconds <= 0 {
		config.Extractor.TimeoutSeconds = 30
	}

	if config.Cache.Address == "" {
		config.Cache.Address = "localhost:6379"
	}
	if config.Cache.TTLHours <= 0 {
		config.Cache.TTLHours = 24 * 7
	}
	if config.Cache.KeyPrefix == "" {
		config.Cache.KeyPrefix = "resume_parser"
	}

	if config.MinIO.Bucket == "" {
		config.MinIO.Bucket = "parsed-resumes"
	}
	if config.MySQL.Port == 0 {
		config.MySQL.Port = 3306
	}
	if config.Tracing.ServiceName == "" {
		config.Tracing.ServiceName = "resume-parser-go"
	}

	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}
	if config.Logger.Format == "" {
		config.Logger.Format = "pretty"
	}
	if config.Logger.TimeFormat == "" {
		config.Logger.TimeFormat = "2006-01-02 15:04:05"
	}
}

// Validate 检查运行所需的配置是否齐全
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		problems = append(problems, "缺少LLM API密钥 (llm.api_key / LLM_API_KEY / GOOGLE_API_KEY)")
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini", "qwen", "openai":
	default:
		problems = append(problems, fmt.Sprintf("不支持的LLM提供方: %s", c.LLM.Provider))
	}
	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		problems = append(problems, "启用MinIO时必须设置 minio.endpoint")
	}
	if c.MySQL.Enabled && (c.MySQL.Host == "" || c.MySQL.Database == "") {
		problems = append(problems, "启用MySQL时必须设置 mysql.host 和 mysql.database")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		problems = append(problems, "启用tracing时必须设置 tracing.endpoint")
	}
	if len(problems) > 0 {
		return fmt.Errorf("配置无效: %s", strings.Join(problems, "; "))
	}
	return nil
}

// EnsureDirectories 创建输入和输出目录（已存在时不做任何事）
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.InputDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	return nil
}

// OutputPath 结果文件的完整路径
func (c *Config) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputFile)
}

// LLMTimeout 单次LLM调用超时，0 表示不限制
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// ExtractTimeout 单个文件的文本提取超时
func (c *Config) ExtractTimeout() time.Duration {
	return time.Duration(c.Extractor.TimeoutSeconds) * time.Second
}

// TTL 缓存过期时间，未配置时使用默认值
func (c CacheConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return constants.DefaultResponseCacheTTL
	}
	return time.Duration(c.TTLHours) * time.Hour
}

// createDefaultConfig 创建一个带默认值的配置，用于生成示例文件
func createDefaultConfig() *Config {
	config := &Config{}
	applyDefaults(config)

	config.LLM.Model = "gemini-2.0-flash"
	config.LLM.APIKey = "your-api-key"
	config.LLM.TimeoutSeconds = 60

	config.MinIO.Endpoint = "localhost:9000"
	config.MinIO.AccessKeyID = "minioadmin"
	config.MinIO.SecretAccessKey = "minioadmin"

	config.MySQL.Host = "localhost"
	config.MySQL.Username = "root"
	config.MySQL.Database = "resume_parser"

	config.Tracing.Endpoint = "localhost:4317"
	return config
}

// CreateSampleConfig 创建一个示例配置文件
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}

	data, err := yaml.Marshal(createDefaultConfig())
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}
	return nil
}
