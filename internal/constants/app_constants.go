package constants

import "time"

const (
	// RawTextPreviewLength raw_text 字段保留的字符数
	RawTextPreviewLength = 500

	// DefaultResponseCacheTTL LLM响应缓存的默认过期时间
	DefaultResponseCacheTTL = 7 * 24 * time.Hour

	// ReportObjectPrefix MinIO中归档结果文件的对象前缀，格式: reports/{runID}/{fileName}
	ReportObjectPrefix = "reports"

	// ParsedResumeTable MySQL镜像表名
	ParsedResumeTable = "parsed_resumes"
)
