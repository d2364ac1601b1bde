package models

import (
	"time"

	"gorm.io/datatypes"

	"resume-parser-go/internal/constants"
)

// ParsedResume 解析结果镜像表，每次批处理的每份成功简历一行
type ParsedResume struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	RunID      string         `gorm:"type:char(36);not null;index:idx_parsed_resumes_run_id"`
	SourceFile string         `gorm:"type:varchar(512);not null;index:idx_parsed_resumes_source_file"`
	Title      string         `gorm:"type:varchar(255)"`
	Fields     datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt  time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (ParsedResume) TableName() string {
	return constants.ParsedResumeTable
}
