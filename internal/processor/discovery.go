package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"resume-parser-go/internal/types"
)

// DiscoverDocuments 列出目录下的 .pdf 和 .docx 文件（扩展名不区分大小写），按文件名排序。
// 子目录和其他类型的文件被忽略。
func DiscoverDocuments(inputDir string) ([]types.Document, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("读取输入目录 %s 失败: %w", inputDir, err)
	}

	docs := make([]types.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		doc, err := types.NewDocument(filepath.Join(inputDir, entry.Name()))
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Name < docs[j].Name
	})
	return docs, nil
}
