package parser

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var (
	// 段落、换行和制表符对应的 WordprocessingML 标签
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br[^>]*/>|<w:cr[^>]*/>`)
	docxTab          = regexp.MustCompile(`<w:tab[^>]*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

// DocxTextExtractor 使用 nguyenthenguyen/docx 读取 word/document.xml 并去掉标签
type DocxTextExtractor struct{}

// NewDocxTextExtractor 创建DOCX文本提取器
func NewDocxTextExtractor() *DocxTextExtractor {
	return &DocxTextExtractor{}
}

// ExtractFromFile 从DOCX文件提取纯文本
func (e *DocxTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", fmt.Errorf("解析docx文件 %s 失败: %w", filePath, err)
	}
	defer doc.Close()

	return StripWordML(doc.Editable().GetContent()), nil
}

// StripWordML 把 document.xml 内容转换为纯文本，段落之间以换行分隔
func StripWordML(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimRight(line, " \t"))
		}
	}
	return strings.Join(kept, "\n")
}
