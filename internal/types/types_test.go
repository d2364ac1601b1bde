package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsKeepInsertionOrder(t *testing.T) {
	f := NewFields()
	assert.False(t, f.Set("b", 1))
	assert.False(t, f.Set("a", 2))
	assert.True(t, f.Set("b", 3), "重复赋值应返回 true")

	assert.Equal(t, []string{"b", "a"}, f.Keys())
	v, ok := f.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, f.Len())

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"b":3,"a":2}`, string(data))
}

func TestFieldsMerge(t *testing.T) {
	base := NewFields()
	base.Set("name", "Jane")
	base.Set("skills", "from personal info")

	other := NewFields()
	other.Set("skills", []string{"Go"})
	other.Set("education", []string{})

	collisions := base.Merge(other)
	assert.Equal(t, []string{"skills"}, collisions)
	assert.Equal(t, []string{"name", "skills", "education"}, base.Keys())
	v, _ := base.Get("skills")
	assert.Equal(t, []string{"Go"}, v)

	assert.Nil(t, base.Merge(nil))
}

func TestFieldsNilSafe(t *testing.T) {
	var f *Fields
	_, ok := f.Get("x")
	assert.False(t, ok)
	assert.Empty(t, f.Keys())
	assert.Zero(t, f.Len())
	assert.Equal(t, "", f.GetString("x"))
}

func TestFieldsJSONNoHTMLEscape(t *testing.T) {
	entry := NewFields()
	entry.Set("title", "R&D <lead>")
	f := NewFields()
	f.Set("experience", []*Fields{entry})

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"experience":[{"title":"R&D <lead>"}]}`, string(data))
}

func TestResumeCollectionColumns(t *testing.T) {
	first := NewFields()
	first.Set("name", "A")
	first.Set(FieldSkills, []string{})
	second := NewFields()
	second.Set("email", "b@example.com")
	second.Set("name", "B")

	collection := ResumeCollection{
		{SourceFile: "a.pdf", Fields: first},
		nil,
		{SourceFile: "b.pdf", Fields: second},
	}
	assert.Equal(t, []string{"name", FieldSkills, "email"}, collection.Columns())
	assert.Empty(t, ResumeCollection{}.Columns())
}

func TestFormatFromPath(t *testing.T) {
	format, err := FormatFromPath("/x/Resume.PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, format)

	format, err = FormatFromPath("cv.Docx")
	require.NoError(t, err)
	assert.Equal(t, FormatDOCX, format)

	_, err = FormatFromPath("cv.doc")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	doc, err := NewDocument("/data/in/jane.pdf")
	require.NoError(t, err)
	assert.Equal(t, "jane.pdf", doc.Name)
	assert.Equal(t, "/data/in/jane.pdf", doc.Path)
}

func TestBatchSummaryReport(t *testing.T) {
	ok := DocumentResult{Record: &ResumeRecord{SourceFile: "a.pdf", Fields: NewFields()}}
	failed := DocumentResult{Document: Document{Name: "b.pdf"}, Err: errors.New("x")}

	summary := &BatchSummary{Results: []DocumentResult{failed}}
	assert.Equal(t, NoneProcessedNotice, summary.Report())
	assert.Empty(t, summary.Records())

	summary = &BatchSummary{Results: []DocumentResult{ok, failed, ok}}
	assert.Equal(t, "成功处理 2 份简历", summary.Report())
	summary.OutputPath = "output/all_parsed_resumes.csv"
	assert.Equal(t, "成功处理 2 份简历，结果已保存到 output/all_parsed_resumes.csv", summary.Report())

	require.Len(t, summary.Failures(), 1)
	assert.Equal(t, "b.pdf", summary.Failures()[0].Document.Name)
}

func TestPipelineErrors(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("processing: %w", NewLLMInvocationError(SectionSkills, cause))

	assert.True(t, errors.Is(err, ErrLLMInvocation))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrParse))

	var pe *PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "llm", pe.Op)

	section, ok := SectionOf(err)
	require.True(t, ok)
	assert.Equal(t, SectionSkills, section)

	_, ok = SectionOf(NewTextExtractionError("a.pdf", cause))
	assert.False(t, ok)

	parseErr := NewParseError(SectionProjects, "Project x", cause)
	assert.Contains(t, parseErr.Error(), "projects")
	assert.Contains(t, parseErr.Error(), "Project x")

	sinkErr := NewSinkWriteError("/out/a.csv", cause)
	assert.Contains(t, sinkErr.Error(), "/out/a.csv")
	assert.True(t, errors.Is(sinkErr, ErrSinkWrite))
}

func TestSectionNameValid(t *testing.T) {
	for _, section := range AllSections {
		assert.True(t, section.Valid(), section)
	}
	assert.False(t, SectionName("hobbies").Valid())
	assert.Len(t, AllSections, 6)
}
