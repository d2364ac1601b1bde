package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SectionName 表示简历的一个抽取章节，决定使用的提示词和解析语法
type SectionName string

const (
	// SectionPersonalInfo 个人信息（姓名、电话、邮箱）
	SectionPersonalInfo SectionName = "personal_info"
	// SectionProfessionalSummary 职业概述
	SectionProfessionalSummary SectionName = "professional_summary"
	// SectionWorkExperience 工作经历
	SectionWorkExperience SectionName = "work_experience"
	// SectionSkills 技能
	SectionSkills SectionName = "skills"
	// SectionEducation 教育经历
	SectionEducation SectionName = "education"
	// SectionProjects 项目经历
	SectionProjects SectionName = "projects"
)

// AllSections 按固定调用顺序列出全部章节
var AllSections = []SectionName{
	SectionPersonalInfo,
	SectionProfessionalSummary,
	SectionWorkExperience,
	SectionSkills,
	SectionEducation,
	SectionProjects,
}

// Valid 判断章节名是否属于固定集合
func (s SectionName) Valid() bool {
	for _, name := range AllSections {
		if name == s {
			return true
		}
	}
	return false
}

// 合并后记录中各章节片段使用的字段名
const (
	FieldProfessionalSummary = "professional_summary"
	FieldExperience          = "experience"
	FieldSkills              = "skills"
	FieldEducation           = "education"
	FieldProjects            = "projects"
	FieldTitle               = "title"
	FieldSourceFile          = "source_file"
	FieldRawText             = "raw_text"
)

// SectionResponses 每个章节对应的LLM原始回复
type SectionResponses map[SectionName]string

// DocumentFormat 文档格式
type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
)

// FormatFromPath 根据文件扩展名判断文档格式（大小写不敏感）
func FormatFromPath(path string) (DocumentFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	default:
		return "", NewUnsupportedFormatError(filepath.Base(path))
	}
}

// Document 一份待处理的简历文件，扫描目录时产生，只读
type Document struct {
	Path   string         // 完整路径
	Name   string         // 文件名，作为 source_file 输出
	Format DocumentFormat // 文件格式
}

// NewDocument 根据路径创建Document
func NewDocument(path string) (Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Path:   path,
		Name:   filepath.Base(path),
		Format: format,
	}, nil
}

// ResumeRecord 一份简历所有章节合并后的扁平记录
type ResumeRecord struct {
	SourceFile string
	Fields     *Fields
}

// ResumeCollection 按处理顺序排列的记录集合
type ResumeCollection []*ResumeRecord

// Columns 返回所有记录字段名的并集，按首次出现的顺序
func (c ResumeCollection) Columns() []string {
	seen := make(map[string]bool)
	var columns []string
	for _, record := range c {
		if record == nil || record.Fields == nil {
			continue
		}
		for _, key := range record.Fields.Keys() {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	return columns
}

// DocumentResult 单个文档的处理结果：成功时带记录，失败时带原因
type DocumentResult struct {
	Document Document
	Record   *ResumeRecord
	Err      error
	Duration time.Duration
}

// OK 是否处理成功
func (r DocumentResult) OK() bool {
	return r.Err == nil && r.Record != nil
}

// NoneProcessedNotice 没有任何文档处理成功时的提示
const NoneProcessedNotice = "没有成功处理任何简历"

// BatchSummary 一次批处理的汇总
type BatchSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []DocumentResult
	OutputPath string // 结果文件路径，未写入时为空
}

// Records 按处理顺序返回成功的记录
func (s *BatchSummary) Records() ResumeCollection {
	records := make(ResumeCollection, 0, len(s.Results))
	for _, result := range s.Results {
		if result.OK() {
			records = append(records, result.Record)
		}
	}
	return records
}

// Failures 返回失败的文档结果
func (s *BatchSummary) Failures() []DocumentResult {
	var failures []DocumentResult
	for _, result := range s.Results {
		if !result.OK() {
			failures = append(failures, result)
		}
	}
	return failures
}

// Report 生成最终的汇总说明
func (s *BatchSummary) Report() string {
	processed := len(s.Records())
	if processed == 0 {
		return NoneProcessedNotice
	}
	if s.OutputPath == "" {
		return fmt.Sprintf("成功处理 %d 份简历", processed)
	}
	return fmt.Sprintf("成功处理 %d 份简历，结果已保存到 %s", processed, s.OutputPath)
}
