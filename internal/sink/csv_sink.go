package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

// CSVSink 把记录集合写成一个CSV文件。
// 表头为所有记录字段的并集（按首次出现顺序），缺失字段留空；字符串原样写入，列表和条目写成JSON。
type CSVSink struct {
	logger zerolog.Logger
}

// NewCSVSink 创建CSV写入器
func NewCSVSink(logger zerolog.Logger) *CSVSink {
	return &CSVSink{logger: logger}
}

// Write 写入 destination，父目录不存在时自动创建，已有文件会被覆盖
func (s *CSVSink) Write(ctx context.Context, collection types.ResumeCollection, destination string) error {
	_, span := tracing.Tracer().Start(ctx, "resume.sink.csv")
	defer span.End()
	span.SetAttributes(
		attribute.String("sink.destination", destination),
		attribute.Int("sink.records", len(collection)),
	)

	if err := s.write(collection, destination); err != nil {
		err = types.NewSinkWriteError(destination, err)
		tracing.RecordError(span, err, tracing.ErrorTypeSink)
		return err
	}

	s.logger.Info().Str("path", destination).Int("records", len(collection)).Msg("结果已写入CSV")
	return nil
}

func (s *CSVSink) write(collection types.ResumeCollection, destination string) error {
	if dir := filepath.Dir(destination); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	file, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}

	if err := writeCSV(file, collection); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeCSV(file *os.File, collection types.ResumeCollection) error {
	columns := collection.Columns()
	w := csv.NewWriter(file)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}

	row := make([]string, len(columns))
	for _, record := range collection {
		if record == nil {
			continue
		}
		for i, column := range columns {
			value, ok := record.Fields.Get(column)
			if !ok {
				row[i] = ""
				continue
			}
			cell, err := FormatCell(value)
			if err != nil {
				return fmt.Errorf("格式化 %s 的字段 %s 失败: %w", record.SourceFile, column, err)
			}
			row[i] = cell
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", record.SourceFile, err)
		}
	}

	w.Flush()
	return w.Error()
}

// FormatCell 把字段值转换为单元格文本
func FormatCell(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	}
}
