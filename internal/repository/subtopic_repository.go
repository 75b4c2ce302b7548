package repository

import (
	"errors"

	"github.com/ashwinyue/next-dataset/internal/model"
	"gorm.io/gorm"
)

// SubtopicRepository 子主题仓库
type SubtopicRepository struct {
	db *gorm.DB
}

// NewSubtopicRepository 创建子主题仓库
func NewSubtopicRepository(db *gorm.DB) *SubtopicRepository {
	return &SubtopicRepository{db: db}
}

// CreateBatch 批量创建子主题
func (r *SubtopicRepository) CreateBatch(subtopics []*model.Subtopic) error {
	if len(subtopics) == 0 {
		return nil
	}
	return r.db.Create(&subtopics).Error
}

// ListAll 列出全部子主题
func (r *SubtopicRepository) ListAll() ([]*model.Subtopic, error) {
	var subtopics []*model.Subtopic
	err := r.db.Order("id ASC").Find(&subtopics).Error
	return subtopics, err
}

// ListByTopic 列出主题下的子主题，topic 为空时返回全部
func (r *SubtopicRepository) ListByTopic(topic string) ([]*model.Subtopic, error) {
	var subtopics []*model.Subtopic
	err := r.byTopic(topic).Order("id ASC").Find(&subtopics).Error
	return subtopics, err
}

// ListPendingQuestions 列出尚未生成问题的子主题
func (r *SubtopicRepository) ListPendingQuestions(topic string) ([]*model.Subtopic, error) {
	var subtopics []*model.Subtopic
	err := r.byTopic(topic).
		Where("questions_generated = ?", false).
		Order("id ASC").
		Find(&subtopics).Error
	return subtopics, err
}

// NextPendingAnswers 返回下一个已生成问题但未生成答案的子主题
// exclude 中的子主题跳过；没有时返回 nil, nil
func (r *SubtopicRepository) NextPendingAnswers(topic string, exclude ...uint) (*model.Subtopic, error) {
	var subtopic model.Subtopic
	query := r.byTopic(topic).
		Where("questions_generated = ? AND answers_generated = ?", true, false)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	err := query.Order("id ASC").First(&subtopic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subtopic, nil
}

// MarkQuestionsGenerated 标记问题已生成（只置 true）
func (r *SubtopicRepository) MarkQuestionsGenerated(id uint) error {
	return r.db.Model(&model.Subtopic{}).
		Where("id = ?", id).
		Update("questions_generated", true).Error
}

// MarkAnswersGenerated 标记答案已生成（只置 true）
func (r *SubtopicRepository) MarkAnswersGenerated(id uint) error {
	return r.db.Model(&model.Subtopic{}).
		Where("id = ?", id).
		Update("answers_generated", true).Error
}

// Count 统计子主题数量
func (r *SubtopicRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Subtopic{}).Count(&count).Error
	return count, err
}

func (r *SubtopicRepository) byTopic(topic string) *gorm.DB {
	if topic == "" {
		return r.db
	}
	return r.db.Where("topic = ?", topic)
}
