package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/parser"
	"resume-parser-go/internal/types"
)

// runExtract 只提取并清洗单个文件的文本，不调用LLM，用于检查解析效果
func runExtract(ctx context.Context, cfg *config.Config, log zerolog.Logger, filePath string, maxLen int) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("无法获取文件的绝对路径: %w", err)
	}
	doc, err := types.NewDocument(absPath)
	if err != nil {
		return err
	}

	extractor, err := newTextExtractor(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("创建文本提取器失败: %w", err)
	}

	fmt.Printf("准备处理文件: %s\n", absPath)
	startTime := time.Now()
	rawText, err := extractor.ExtractText(ctx, doc)
	if err != nil {
		return err
	}
	text := parser.Normalize(rawText)
	fmt.Printf("提取完成! 耗时: %v\n", time.Since(startTime))

	fmt.Printf("\n===== 清洗后的文本 (原文 %d 字符, 清洗后 %d 字符) =====\n", len([]rune(rawText)), len([]rune(text)))
	if maxLen >= 0 {
		fmt.Println(parser.Preview(text, maxLen))
	} else {
		fmt.Println(text)
	}
	return nil
}
