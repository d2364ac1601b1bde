package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resume-parser-go/internal/types"
)

func newRecord(source, title string) *types.ResumeRecord {
	fields := types.NewFields()
	fields.Set(types.FieldTitle, title)
	fields.Set(types.FieldSkills, []string{"Go", "SQL"})
	fields.Set(types.FieldSourceFile, source)
	return &types.ResumeRecord{SourceFile: source, Fields: fields}
}

func newSummary() *types.BatchSummary {
	finished := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	return &types.BatchSummary{
		RunID:      "run-1",
		FinishedAt: finished,
		Results: []types.DocumentResult{
			{Document: types.Document{Name: "a.pdf"}, Record: newRecord("a.pdf", "工程师")},
			{Document: types.Document{Name: "b.pdf"}, Err: errors.New("boom")},
			{Document: types.Document{Name: "c.docx"}, Record: newRecord("c.docx", "")},
		},
		OutputPath: "output/all_parsed_resumes.csv",
	}
}

// newDryRunDB 创建不连接数据库的GORM实例，只生成SQL
func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:1)/resumes?parseTime=True",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:                 true,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestBuildParsedResumes(t *testing.T) {
	rows, err := BuildParsedResumes(newSummary())
	require.NoError(t, err)
	require.Len(t, rows, 2, "失败的文档不应写入")

	assert.Equal(t, "run-1", rows[0].RunID)
	assert.Equal(t, "a.pdf", rows[0].SourceFile)
	assert.Equal(t, "工程师", rows[0].Title)
	assert.Equal(t, "c.docx", rows[1].SourceFile)
	assert.Empty(t, rows[1].Title)

	assert.JSONEq(t, `{"title":"工程师","skills":["Go","SQL"],"source_file":"a.pdf"}`, string(rows[0].Fields))

	var keys []string
	dec := json.NewDecoder(bytes.NewReader(rows[0].Fields))
	_, _ = dec.Token()
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}
	assert.Equal(t, []string{"title", "skills", "source_file"}, keys, "JSON应保留字段顺序")
}

func TestParsedResumeTableName(t *testing.T) {
	db := newDryRunDB(t)
	rows, err := BuildParsedResumes(newSummary())
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return tx.Create(&rows)
	})
	assert.Contains(t, sql, "INSERT INTO `parsed_resumes`")
	assert.Contains(t, sql, "run-1")
}

func TestRecordMirrorPublishDryRun(t *testing.T) {
	db := newDryRunDB(t)
	require.NoError(t, db.Use(NewGormTracingPlugin("resumes")))

	var statements []string
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:capture", func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	}))

	mirror := NewRecordMirrorWithDB(db, "resumes", zerolog.Nop())
	assert.Equal(t, "mysql", mirror.Name())
	require.NoError(t, mirror.Publish(context.Background(), newSummary()))

	require.Len(t, statements, 1)
	assert.Contains(t, statements[0], "INSERT INTO `parsed_resumes`")
}

func TestRecordMirrorPublishNothing(t *testing.T) {
	db := newDryRunDB(t)
	var calls int
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:count", func(*gorm.DB) {
		calls++
	}))

	mirror := NewRecordMirrorWithDB(db, "resumes", zerolog.Nop())
	require.NoError(t, mirror.Publish(context.Background(), &types.BatchSummary{RunID: "empty"}))
	assert.Zero(t, calls, "没有记录时不应执行插入")

	assert.Error(t, mirror.Publish(context.Background(), nil))
}
