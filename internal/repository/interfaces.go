// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import "github.com/ashwinyue/next-dataset/internal/model"

// ========== SubtopicStore 接口 ==========

// SubtopicStore 子主题数据访问接口
type SubtopicStore interface {
	CreateBatch(subtopics []*model.Subtopic) error
	ListAll() ([]*model.Subtopic, error)
	ListByTopic(topic string) ([]*model.Subtopic, error)
	ListPendingQuestions(topic string) ([]*model.Subtopic, error)
	NextPendingAnswers(topic string, exclude ...uint) (*model.Subtopic, error)
	MarkQuestionsGenerated(id uint) error
	MarkAnswersGenerated(id uint) error
	Count() (int64, error)
}

// ========== QAStore 接口 ==========

// QAStore 问答数据访问接口
type QAStore interface {
	CreateBatch(records []*model.QuestionAnswer) error
	ListUnanswered(subtopicID uint, limit int) ([]model.DatasetRow, error)
	CountUnanswered(subtopicID uint) (int64, error)
	SetAnswers(answers map[uint]string) (int64, error)
	ListAnswered() ([]*model.QuestionAnswer, error)
	ListDatasetRows() ([]model.DatasetRow, error)
	Count() (int64, error)
}

// 确保实现了接口
var (
	_ SubtopicStore = (*SubtopicRepository)(nil)
	_ QAStore       = (*QARepository)(nil)
)
