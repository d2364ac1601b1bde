package types

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrUnsupportedFormat = errors.New("不支持的文件格式")
	ErrTextExtraction    = errors.New("提取简历文本失败")
	ErrLLMInvocation     = errors.New("调用LLM失败")
	ErrParse             = errors.New("解析章节输出失败")
	ErrSinkWrite         = errors.New("写入结果文件失败")
)

// PipelineError 包含详细信息的流水线错误
type PipelineError struct {
	Op      string      // 出错的阶段: discover, extract, llm, parse, sink
	File    string      // 相关文件名或输出路径
	Section SectionName // 相关章节（可选）
	BaseErr error       // 基础错误类型
	Detail  string      // 补充信息，例如截断后的LLM回复
	Cause   error       // 原始错误
}

func (e *PipelineError) Error() string {
	msg := e.BaseErr.Error()
	if e.Section != "" {
		msg = fmt.Sprintf("%s (操作:%s, 章节:%s)", msg, e.Op, e.Section)
	} else {
		msg = fmt.Sprintf("%s (操作:%s)", msg, e.Op)
	}
	if e.File != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.File)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (回复片段: %q)", msg, e.Detail)
	}
	return msg
}

// Unwrap 同时暴露基础错误和原始错误，便于 errors.Is / errors.As
func (e *PipelineError) Unwrap() []error {
	errs := []error{e.BaseErr}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// 错误构造函数

func NewUnsupportedFormatError(file string) error {
	return &PipelineError{
		Op:      "discover",
		File:    file,
		BaseErr: ErrUnsupportedFormat,
	}
}

func NewTextExtractionError(file string, cause error) error {
	return &PipelineError{
		Op:      "extract",
		File:    file,
		BaseErr: ErrTextExtraction,
		Cause:   cause,
	}
}

func NewLLMInvocationError(section SectionName, cause error) error {
	return &PipelineError{
		Op:      "llm",
		Section: section,
		BaseErr: ErrLLMInvocation,
		Cause:   cause,
	}
}

func NewParseError(section SectionName, excerpt string, cause error) error {
	return &PipelineError{
		Op:      "parse",
		Section: section,
		BaseErr: ErrParse,
		Detail:  excerpt,
		Cause:   cause,
	}
}

func NewSinkWriteError(path string, cause error) error {
	return &PipelineError{
		Op:      "sink",
		File:    path,
		BaseErr: ErrSinkWrite,
		Cause:   cause,
	}
}

// SectionOf 从错误链中取出出错的章节
func SectionOf(err error) (SectionName, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Section != "" {
		return pe.Section, true
	}
	return "", false
}
