package repository

import "gorm.io/gorm"

// Repositories 仓库集合，对应一个数据存储
type Repositories struct {
	DB       *gorm.DB // 直接访问数据库
	Subtopic *SubtopicRepository
	QA       *QARepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:       db,
		Subtopic: NewSubtopicRepository(db),
		QA:       NewQARepository(db),
	}
}
