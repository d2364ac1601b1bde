package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// clearEnv 清理会影响配置的环境变量
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LLM_API_KEY", "LLM_PROVIDER", "LLM_MODEL", "GOOGLE_API_KEY", "RESUME_INPUT_DIR", "RESUME_OUTPUT_DIR", "TIKA_URL"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "无法写入临时配置文件")
	return path
}

// TestLoadConfigFromFile 验证完整的YAML配置能被正确加载
func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
input_dir: resumes
output_dir: results
workers: 4
llm:
  provider: qwen
  api_key: secret
  model: qwen-turbo
  temperature: 0.5
  qpm: 120
cache:
  enabled: true
  address: redis:6379
minio:
  enabled: true
  endpoint: minio:9000
  bucket: archive
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "resumes", config.InputDir)
	assert.Equal(t, "results", config.OutputDir)
	assert.Equal(t, DefaultOutputFile, config.OutputFile, "未设置时应使用默认文件名")
	assert.Equal(t, 4, config.Workers)
	assert.Equal(t, "qwen", config.LLM.Provider)
	assert.Equal(t, "secret", config.LLM.APIKey)
	assert.InDelta(t, 0.5, config.LLM.Temperature, 1e-9)
	assert.Equal(t, 120, config.LLM.QPM)
	assert.True(t, config.Cache.Enabled)
	assert.Equal(t, "redis:6379", config.Cache.Address)
	assert.Equal(t, "archive", config.MinIO.Bucket)
	assert.Equal(t, filepath.Join("results", DefaultOutputFile), config.OutputPath())
	assert.NoError(t, config.Validate())
}

// TestLoadConfigDefaults 验证空配置文件得到完整的默认值
func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	config, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "input", config.InputDir)
	assert.Equal(t, "output", config.OutputDir)
	assert.Equal(t, 1, config.Workers)
	assert.Equal(t, "gemini", config.LLM.Provider)
	assert.InDelta(t, 0.2, config.LLM.Temperature, 1e-9)
	assert.Equal(t, 30, config.LLM.QPM)
	assert.Equal(t, 3, config.LLM.MaxRetries)
	assert.Equal(t, "info", config.Logger.Level)
	assert.Equal(t, 3306, config.MySQL.Port)
	assert.Zero(t, config.LLMTimeout())
	assert.Equal(t, 30*time.Second, config.ExtractTimeout())
	assert.Empty(t, config.Extractor.TikaURL)

	assert.Error(t, config.Validate(), "缺少API密钥时校验应失败")
}

// TestLoadConfigLegacyGoogleAPIKey 验证旧格式的顶层 google_api_key 仍然可用
func TestLoadConfigLegacyGoogleAPIKey(t *testing.T) {
	clearEnv(t)
	config, err := LoadConfig(writeConfig(t, `
input_dir: data/resumes
output_dir: data/output
google_api_key: legacy-key
`))
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", config.LLM.APIKey)
	assert.Equal(t, "data/resumes", config.InputDir)
}

// TestLoadConfigEnvOverrides 验证环境变量优先于配置文件
func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("LLM_MODEL", "gemini-2.5-pro")
	t.Setenv("RESUME_INPUT_DIR", "/tmp/in")
	t.Setenv("RESUME_OUTPUT_DIR", "/tmp/out")
	t.Setenv("TIKA_URL", "http://tika:9998")

	config, err := LoadConfig(writeConfig(t, `
input_dir: resumes
llm:
  api_key: file-key
  model: gemini-2.0-flash
`))
	require.NoError(t, err)
	assert.Equal(t, "env-key", config.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro", config.LLM.Model)
	assert.Equal(t, "/tmp/in", config.InputDir)
	assert.Equal(t, "/tmp/out", config.OutputDir)
	assert.Equal(t, "http://tika:9998", config.Extractor.TikaURL)
}

func TestLoadConfigGoogleAPIKeyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	config, err := LoadConfig(writeConfig(t, "workers: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, "google-key", config.LLM.APIKey)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "llm: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	config, err := LoadConfig(writeConfig(t, "llm:\n  api_key: k\n"))
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	config.LLM.Provider = "claude"
	assert.Error(t, config.Validate())

	config.LLM.Provider = "gemini"
	config.MinIO.Enabled = true
	assert.Error(t, config.Validate(), "启用MinIO但没有endpoint时应失败")
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	config := &Config{
		InputDir:  filepath.Join(root, "in"),
		OutputDir: filepath.Join(root, "nested", "out"),
	}
	require.NoError(t, config.EnsureDirectories())
	assert.DirExists(t, config.InputDir)
	assert.DirExists(t, config.OutputDir)

	// 再次调用不应报错
	assert.NoError(t, config.EnsureDirectories())
}

func TestCreateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.yaml")
	require.NoError(t, CreateSampleConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var loaded Config
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, DefaultOutputFile, loaded.OutputFile)
	assert.Equal(t, "gemini", loaded.LLM.Provider)

	assert.Error(t, CreateSampleConfig(path), "已存在的文件不应被覆盖")
}

func TestCacheConfigTTL(t *testing.T) {
	assert.Equal(t, 2*time.Hour, CacheConfig{TTLHours: 2}.TTL())
	assert.Equal(t, 7*24*time.Hour, CacheConfig{}.TTL(), "未配置时使用默认过期时间")
}
