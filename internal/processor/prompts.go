package processor

import (
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"resume-parser-go/internal/types"
)

// TextVariable 提示词模板中简历文本的占位变量名
const TextVariable = "text"

// sectionInstructions 各章节的抽取指令，{text} 为清洗后的简历文本
var sectionInstructions = map[types.SectionName]string{
	types.SectionPersonalInfo: `Extract the following details from the resume:
- Full Name
- Phone Number
- Email Address
Text: {text}
Return only the extracted information in key: value format`,

	types.SectionProfessionalSummary: `Extract the professional summary or career objective from the resume: {text}`,

	types.SectionWorkExperience: `Extract work experience details. For each job include:
- Job Title
- Company Name
- Employment Period
- Responsibilities/Accomplishments
- Technologies Used
Text: {text}
Format as: Job [number]: [details]`,

	types.SectionSkills: `Extract technical skills including programming languages, tools, and frameworks: {text}`,

	types.SectionEducation: `Extract education details including:
- Degree
- Institution
- Graduation Year
- GPA
Text: {text}`,

	types.SectionProjects: `Extract top 3 projects including:
- Project Title
- Description
- Technologies Used
Text: {text}`,
}

// SectionInstruction 返回章节的指令模板
func SectionInstruction(section types.SectionName) (string, bool) {
	instruction, ok := sectionInstructions[section]
	return instruction, ok
}

// NewSectionTemplates 为每个章节构建 eino ChatTemplate
func NewSectionTemplates() (map[types.SectionName]prompt.ChatTemplate, error) {
	templates := make(map[types.SectionName]prompt.ChatTemplate, len(types.AllSections))
	for _, section := range types.AllSections {
		instruction, ok := sectionInstructions[section]
		if !ok {
			return nil, fmt.Errorf("章节 %s 缺少提示词模板", section)
		}
		templates[section] = prompt.FromMessages(schema.FString, schema.UserMessage(instruction))
	}
	return templates, nil
}
