package parser

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "空输入", raw: "", want: ""},
		{name: "只有空白", raw: " \n\t  ", want: ""},
		{name: "大小写与符号", raw: "John DOE | Senior Engineer!", want: "john doe senior engineer"},
		{name: "保留标点", raw: "Email: john.doe@example.com, Phone: +1-555-0100", want: "email john.doe example.com, phone 1-555-0100"},
		{name: "合并空白", raw: "  Go\n\n\tPython   Rust  ", want: "go python rust"},
		{name: "非ASCII字母保留", raw: "张三 Résumé：后端工程师", want: "张三 résumé 后端工程师"},
		{name: "数字保留", raw: "GPA 3.8/4.0 (2020)", want: "gpa 3.8 4.0 2020"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Jane Smith\nSoftware Engineer @ ACME (2019-2023)",
		"Skills: Go, Python; Kubernetes & Docker!!",
		"",
		"   ---   ...   ,,,   ",
	}
	for _, raw := range inputs {
		once := Normalize(raw)
		assert.Equal(t, once, Normalize(once), "对 %q 二次清洗结果应不变", raw)
	}
}

func TestNormalizeAlphabet(t *testing.T) {
	raw := "A!b@c#1$2%3^&*()_+=[]{}<>?/\\|~`\"' x.y,z-w\n\tend"
	out := Normalize(raw)

	prevSpace := false
	for _, r := range out {
		allowed := unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '.' || r == ',' || r == '-'
		assert.True(t, allowed, "输出中出现不允许的字符 %q", r)
		assert.False(t, unicode.IsUpper(r), "输出中出现大写字母 %q", r)
		if r == ' ' {
			assert.False(t, prevSpace, "输出中出现连续空格")
		}
		prevSpace = r == ' '
	}
	assert.NotEqual(t, ' ', rune(out[0]))
	assert.NotEqual(t, byte(' '), out[len(out)-1])
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc...", Preview("abc", 500))
	assert.Equal(t, "ab...", Preview("abcdef", 2))
	assert.Equal(t, "张三...", Preview("张三丰", 2))
	assert.Equal(t, "...", Preview("", 500))
}
