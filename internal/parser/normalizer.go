package parser

import (
	"strings"
	"unicode"
)

// Normalize 清洗简历原文：转为小写，除字母、数字、空白和 . , - 之外的字符替换为空格，
// 连续空白合并为一个空格并去掉首尾空白。空输入返回空串。
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	lowered := strings.ToLower(raw)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsSpace(r):
			return r
		case r == '.', r == ',', r == '-':
			return r
		default:
			return ' '
		}
	}, lowered)

	return strings.Join(strings.Fields(cleaned), " ")
}

// Preview 截取前 limit 个字符作为预览，并总是追加省略号
func Preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + "..."
}
