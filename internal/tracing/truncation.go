package tracing

import (
	"strings"
	"unicode"
)

const (
	// DefaultMaxLength span属性和错误信息的默认最大长度
	DefaultMaxLength = 200

	// MaxSQLLength SQL语句最大长度
	MaxSQLLength = 500

	// MaxRedisKeyLength 缓存键最大长度，键中包含文本摘要
	MaxRedisKeyLength = 100

	// MaxExcerptLength 错误中保留的LLM回复片段长度
	MaxExcerptLength = 150
)

// sensitiveKeys 字段名包含这些片段时视为候选人隐私信息
var sensitiveKeys = []string{
	"name", "姓名",
	"email", "邮箱",
	"phone", "mobile", "电话", "手机",
	"address", "地址",
	"linkedin", "github", "website",
	"password", "secret", "token", "api_key",
}

// IsSensitiveKey 判断字段名是否对应隐私信息
func IsSensitiveKey(name string) bool {
	lower := strings.ToLower(name)
	for _, key := range sensitiveKeys {
		if strings.Contains(lower, key) {
			return true
		}
	}
	return false
}

// SafeAttributeValue 隐私字段返回掩码后的值，其余字段截断到 maxLength
func SafeAttributeValue(name, value string, maxLength int) string {
	if IsSensitiveKey(name) {
		return TruncateString(MaskPII(value), maxLength)
	}
	return TruncateString(value, maxLength)
}

// MaskPII 掩码处理隐私信息。
// 邮箱只保留本地部分首字符和域名，含数字的值只保留最后4位数字，其余保留首尾字符。
func MaskPII(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if at := strings.LastIndex(value, "@"); at > 0 {
		local := []rune(value[:at])
		return string(local[0]) + strings.Repeat("*", len(local)-1) + value[at:]
	}

	if digits := countDigits(value); digits >= 4 {
		return maskDigits(value, digits-4)
	}

	runes := []rune(value)
	switch len(runes) {
	case 1:
		return "*"
	case 2:
		return string(runes[0]) + "*"
	default:
		return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
	}
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// maskDigits 把前 n 个数字替换为*，保留分隔符
func maskDigits(s string, n int) string {
	var sb strings.Builder
	for _, r := range s {
		if n > 0 && unicode.IsDigit(r) {
			sb.WriteRune('*')
			n--
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// TruncateString 截断字符串，保留前后部分，中间用...连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeSQL 截断SQL语句
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// SafeRedisKey 截断缓存键
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisKeyLength)
}

// SafeExcerpt 截断放入错误信息的LLM回复
func SafeExcerpt(response string) string {
	return TruncateString(response, MaxExcerptLength)
}
