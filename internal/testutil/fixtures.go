// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/next-dataset/internal/config"
	"github.com/ashwinyue/next-dataset/internal/database"
	"github.com/ashwinyue/next-dataset/internal/model"
)

// FixedTime 测试用固定时间
var FixedTime = time.Date(2026, 10, 18, 9, 5, 7, 0, time.Local)

// NewConfig 返回默认配置，存储和导出目录指向临时目录
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Storage.Dir = t.TempDir()
	cfg.Export.Dir = t.TempDir()
	cfg.Pipeline.MaxAttempts = 3
	return cfg
}

// OpenStore 打开 sqlite 存储，测试结束时关闭
func OpenStore(t *testing.T, cfg *config.Config, name string) *gorm.DB {
	t.Helper()
	db, err := database.NewOpener(cfg).Open(context.Background(), name)
	if err != nil {
		t.Fatalf("open store %s: %v", name, err)
	}
	t.Cleanup(func() { db.Close() })
	return db.DB
}

// SeedSubtopic 插入子主题及其未回答的问题
func SeedSubtopic(t *testing.T, db *gorm.DB, st *model.Subtopic, questions ...string) *model.Subtopic {
	t.Helper()
	if err := db.Create(st).Error; err != nil {
		t.Fatalf("seed subtopic: %v", err)
	}
	if len(questions) == 0 {
		return st
	}
	records := make([]*model.QuestionAnswer, len(questions))
	for i, q := range questions {
		records[i] = &model.QuestionAnswer{CreatedAt: FixedTime, Question: q, SubtopicID: st.ID}
	}
	if err := db.Create(&records).Error; err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	return st
}

// SeedAnswered 插入已回答的问答记录
func SeedAnswered(t *testing.T, db *gorm.DB, subtopicID uint, pairs ...[2]string) {
	t.Helper()
	for _, p := range pairs {
		answer := p[1]
		qa := &model.QuestionAnswer{CreatedAt: FixedTime, Question: p[0], Answer: &answer, SubtopicID: subtopicID}
		if err := db.Create(qa).Error; err != nil {
			t.Fatalf("seed answered: %v", err)
		}
	}
}

// CanceledContext 返回已取消的 context
func CanceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
