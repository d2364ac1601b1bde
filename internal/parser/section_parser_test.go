package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-parser-go/internal/types"
)

func TestParseKeyValueLines(t *testing.T) {
	response := "Full Name: John Doe\nEmail Address: john@x.com\nnoise line"
	fields := ParseKeyValueLines(response)

	assert.Equal(t, []string{"full name", "email address"}, fields.Keys())
	assert.Equal(t, "John Doe", fields.GetString("full name"))
	assert.Equal(t, "john@x.com", fields.GetString("email address"))
}

func TestParseKeyValueLinesSplitsOnFirstColon(t *testing.T) {
	fields := ParseKeyValueLines("  Website : https://example.com:8080/me  ")
	assert.Equal(t, "https://example.com:8080/me", fields.GetString("website"))
}

func TestParseSectionPersonalInfo(t *testing.T) {
	fields, err := ParseSection("Full Name: John Doe\nPhone Number: 555-0100", types.SectionPersonalInfo)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", fields.GetString("full name"))
	assert.Equal(t, "555-0100", fields.GetString("phone number"))
}

func TestParseSectionProfessionalSummary(t *testing.T) {
	response := "  Experienced engineer.\nLoves Go.  "
	fields, err := ParseSection(response, types.SectionProfessionalSummary)
	require.NoError(t, err)
	assert.Equal(t, response, fields.GetString(types.FieldProfessionalSummary), "职业概述应原样保留")
}

func TestParseSectionWorkExperience(t *testing.T) {
	response := "Here are the jobs:\nJob 1: Senior Engineer\nCompany: Acme\nPeriod: 2019-2023\nJob 2: Intern\nCompany: Beta"
	fields, err := ParseSection(response, types.SectionWorkExperience)
	require.NoError(t, err)

	value, ok := fields.Get(types.FieldExperience)
	require.True(t, ok)
	jobs, ok := value.([]*types.Fields)
	require.True(t, ok)
	require.Len(t, jobs, 2)

	assert.Equal(t, []string{"title", "company", "period"}, jobs[0].Keys())
	assert.Equal(t, "Senior Engineer", jobs[0].GetString("title"))
	assert.Equal(t, "Acme", jobs[0].GetString("company"))
	assert.Equal(t, "2019-2023", jobs[0].GetString("period"))
	assert.Equal(t, "Intern", jobs[1].GetString("title"))
	assert.Equal(t, "Beta", jobs[1].GetString("company"))
}

func TestParseSectionWorkExperienceWithoutMarker(t *testing.T) {
	fields, err := ParseSection("No employment history found.", types.SectionWorkExperience)
	require.NoError(t, err)
	value, _ := fields.Get(types.FieldExperience)
	assert.Empty(t, value)
}

func TestParseSectionMissingTitleColon(t *testing.T) {
	_, err := ParseSection("Job 1 Senior Engineer\nCompany: Acme", types.SectionWorkExperience)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrParse))
	assert.True(t, errors.Is(err, ErrMissingTitle))

	section, ok := types.SectionOf(err)
	require.True(t, ok)
	assert.Equal(t, types.SectionWorkExperience, section)
}

func TestParseSectionProjects(t *testing.T) {
	response := "Project 1: Resume Parser\nDescription: Parses resumes\nTechnologies Used: Go, eino"
	fields, err := ParseSection(response, types.SectionProjects)
	require.NoError(t, err)

	value, _ := fields.Get(types.FieldProjects)
	projects := value.([]*types.Fields)
	require.Len(t, projects, 1)
	assert.Equal(t, "Resume Parser", projects[0].GetString("title"))
	assert.Equal(t, "Go, eino", projects[0].GetString("technologies used"))
}

func TestParseSectionSkills(t *testing.T) {
	fields, err := ParseSection("Python, Go , Docker", types.SectionSkills)
	require.NoError(t, err)
	value, _ := fields.Get(types.FieldSkills)
	assert.Equal(t, []string{"Python", "Go", "Docker"}, value)
}

// 空项与结尾逗号产生的空字符串会被保留
func TestParseCommaListKeepsEmptyPieces(t *testing.T) {
	assert.Equal(t, []string{"Python", "", "Go", ""}, ParseCommaList("Python, , Go,"))
	assert.Equal(t, []string{""}, ParseCommaList(""))
}

func TestParseSectionEducation(t *testing.T) {
	response := "Degree: BSc\nInstitution: MIT\nHobbies: chess\n  GPA: 3.9  "
	fields, err := ParseSection(response, types.SectionEducation)
	require.NoError(t, err)
	value, _ := fields.Get(types.FieldEducation)
	assert.Equal(t, []string{"Degree: BSc", "Institution: MIT", "GPA: 3.9"}, value)
}

func TestFilterEducationLinesEmpty(t *testing.T) {
	lines := FilterEducationLines("nothing relevant here")
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestParseSectionUnknown(t *testing.T) {
	_, err := ParseSection("anything", types.SectionName("hobbies"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrParse))
}
