package model

import (
	"time"
)

// QuestionAnswer 问答记录
// Answer 在生成答案前为 NULL，之后只写一次
type QuestionAnswer struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	Question   string    `json:"question" gorm:"not null"`
	Answer     *string   `json:"answer"`
	SubtopicID uint      `json:"subtopic_id" gorm:"index"`
	Subtopic   *Subtopic `json:"-" gorm:"foreignKey:SubtopicID"`
}

// TableName 指定表名
func (QuestionAnswer) TableName() string {
	return "questions_answers"
}

// HasAnswer 是否已有答案
func (qa *QuestionAnswer) HasAnswer() bool {
	return qa.Answer != nil && *qa.Answer != ""
}

// DatasetRow 扇出的工作单元
// QAID 为 0 表示该行不对应已有问答记录（基线数据集）
type DatasetRow struct {
	QAID       uint   `json:"qa_id,omitempty" gorm:"column:qa_id"`
	Question   string `json:"question"`
	Topic      string `json:"topic"`
	Subtopic   string `json:"subtopic"`
	SubtopicID uint   `json:"subtopic_id" gorm:"column:subtopic_id"`
}
