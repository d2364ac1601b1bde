package parser

import (
	"errors"
	"fmt"
	"strings"

	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

// 条目型章节的分隔标记
const (
	JobMarker     = "Job "
	ProjectMarker = "Project "
)

// 教育经历行的筛选关键字
var educationKeywords = []string{"degree", "institution", "graduation", "gpa"}

// ErrMissingTitle 条目首行没有冒号，无法取得标题
var ErrMissingTitle = errors.New("条目首行缺少冒号，无法解析标题")

// ParseSection 按章节对应的语法解析LLM回复，返回可合并进简历记录的字段片段。
// 解析过程中的任何失败（包括panic）都会转换为 ParseError。
func ParseSection(response string, section types.SectionName) (fields *types.Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			fields = nil
			err = types.NewParseError(section, tracing.SafeExcerpt(response), fmt.Errorf("panic: %v", r))
		}
	}()

	fields = types.NewFields()
	switch section {
	case types.SectionPersonalInfo:
		fields = ParseKeyValueLines(response)
	case types.SectionProfessionalSummary:
		fields.Set(types.FieldProfessionalSummary, response)
	case types.SectionWorkExperience:
		entries, perr := ParseItemizedBlocks(response, JobMarker)
		if perr != nil {
			return nil, types.NewParseError(section, tracing.SafeExcerpt(response), perr)
		}
		fields.Set(types.FieldExperience, entries)
	case types.SectionSkills:
		fields.Set(types.FieldSkills, ParseCommaList(response))
	case types.SectionEducation:
		fields.Set(types.FieldEducation, FilterEducationLines(response))
	case types.SectionProjects:
		entries, perr := ParseItemizedBlocks(response, ProjectMarker)
		if perr != nil {
			return nil, types.NewParseError(section, tracing.SafeExcerpt(response), perr)
		}
		fields.Set(types.FieldProjects, entries)
	default:
		return nil, types.NewParseError(section, "", fmt.Errorf("未知章节: %q", section))
	}
	return fields, nil
}

// ParseKeyValueLines 逐行解析 "key: value"。
// 只在第一个冒号处切分，key 去空白并转小写，value 去空白，没有冒号的行忽略。
func ParseKeyValueLines(response string) *types.Fields {
	fields := types.NewFields()
	addKeyValueLines(fields, strings.Split(response, "\n"))
	return fields
}

func addKeyValueLines(fields *types.Fields, lines []string) {
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields.Set(strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value))
	}
}

// ParseItemizedBlocks 按字面标记切分条目（例如 "Job " 或 "Project "），丢弃第一个标记之前的内容。
// 每个条目首行冒号之后的文本为 title，其余行按 key: value 解析。
func ParseItemizedBlocks(response, marker string) ([]*types.Fields, error) {
	segments := strings.Split(response, marker)
	entries := make([]*types.Fields, 0, len(segments)-1)
	for i, segment := range segments[1:] {
		lines := strings.Split(segment, "\n")
		_, title, ok := strings.Cut(lines[0], ":")
		if !ok {
			return nil, fmt.Errorf("第 %d 个条目 %q: %w", i+1, tracing.TruncateString(lines[0], tracing.DefaultMaxLength), ErrMissingTitle)
		}
		entry := types.NewFields()
		entry.Set(types.FieldTitle, strings.TrimSpace(title))
		addKeyValueLines(entry, lines[1:])
		entries = append(entries, entry)
	}
	return entries, nil
}

// ParseCommaList 按逗号切分并去掉每项首尾空白，空项保留
func ParseCommaList(response string) []string {
	pieces := strings.Split(response, ",")
	for i, piece := range pieces {
		pieces[i] = strings.TrimSpace(piece)
	}
	return pieces
}

// FilterEducationLines 保留包含 degree/institution/graduation/gpa（不区分大小写）的行，去掉首尾空白后返回
func FilterEducationLines(response string) []string {
	lines := []string{}
	for _, line := range strings.Split(response, "\n") {
		lowered := strings.ToLower(line)
		for _, keyword := range educationKeywords {
			if strings.Contains(lowered, keyword) {
				lines = append(lines, strings.TrimSpace(line))
				break
			}
		}
	}
	return lines
}
