package repository

import (
	"github.com/ashwinyue/next-dataset/internal/model"
	"gorm.io/gorm"
)

// QARepository 问答仓库
type QARepository struct {
	db *gorm.DB
}

// NewQARepository 创建问答仓库
func NewQARepository(db *gorm.DB) *QARepository {
	return &QARepository{db: db}
}

// CreateBatch 批量创建问答记录
func (r *QARepository) CreateBatch(records []*model.QuestionAnswer) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Create(&records).Error
}

// ListUnanswered 列出子主题下未回答的问题，limit <= 0 表示不限制
func (r *QARepository) ListUnanswered(subtopicID uint, limit int) ([]model.DatasetRow, error) {
	var rows []model.DatasetRow
	query := r.db.Table("questions_answers AS qa").
		Select("qa.id AS qa_id, qa.question, s.topic, s.subtopic, s.id AS subtopic_id").
		Joins("JOIN subtopics s ON qa.subtopic_id = s.id").
		Where("qa.subtopic_id = ? AND qa.answer IS NULL", subtopicID).
		Order("qa.id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Scan(&rows).Error
	return rows, err
}

// CountUnanswered 统计子主题下未回答的问题
func (r *QARepository) CountUnanswered(subtopicID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.QuestionAnswer{}).
		Where("subtopic_id = ? AND answer IS NULL", subtopicID).
		Count(&count).Error
	return count, err
}

// SetAnswers 在一个事务内写入答案
// 只更新 answer 为 NULL 的记录，返回实际写入条数
func (r *QARepository) SetAnswers(answers map[uint]string) (int64, error) {
	var written int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for id, answer := range answers {
			res := tx.Model(&model.QuestionAnswer{}).
				Where("id = ? AND answer IS NULL", id).
				Update("answer", answer)
			if res.Error != nil {
				return res.Error
			}
			written += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// ListAnswered 列出全部已回答的问答记录
func (r *QARepository) ListAnswered() ([]*model.QuestionAnswer, error) {
	var records []*model.QuestionAnswer
	err := r.db.Where("answer IS NOT NULL AND answer <> ''").
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// ListDatasetRows 关联子主题列出全部问答行（基线数据集）
func (r *QARepository) ListDatasetRows() ([]model.DatasetRow, error) {
	var rows []model.DatasetRow
	err := r.db.Table("questions_answers AS qa").
		Select("qa.id AS qa_id, qa.question, s.topic, s.subtopic, s.id AS subtopic_id").
		Joins("JOIN subtopics s ON qa.subtopic_id = s.id").
		Order("qa.id ASC").
		Scan(&rows).Error
	return rows, err
}

// Count 统计问答记录数量
func (r *QARepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.QuestionAnswer{}).Count(&count).Error
	return count, err
}
