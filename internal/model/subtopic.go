package model

// Subtopic 子主题
// questions_generated / answers_generated 只会从 false 变为 true
type Subtopic struct {
	ID                 uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Topic              string `json:"topic" gorm:"not null;index"`
	Text               string `json:"subtopic" gorm:"column:subtopic;not null"`
	QuestionsGenerated bool   `json:"questions_generated" gorm:"not null;default:false"`
	AnswersGenerated   bool   `json:"answers_generated" gorm:"not null;default:false"`
}

// TableName 指定表名
func (Subtopic) TableName() string {
	return "subtopics"
}
