package pipeline

import (
	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/repository"
	"github.com/ashwinyue/next-dataset/internal/service/loop"
	"github.com/ashwinyue/next-dataset/internal/service/ranking"
)

// RunState 在图节点间传递的运行状态
type RunState struct {
	Request RunRequest
	Report  *RunReport

	route route
	repos *repository.Repositories

	// 回答流水线
	rows      []model.DatasetRow
	responses []*loop.Result[string]
	current   *model.Subtopic
	excluded  map[uint]bool

	// 问题流水线
	subtopics []*model.Subtopic
	index     int
	questions *loop.Result[[]string]

	// 子主题流水线
	rankings []*rankedTopic
}

// rankedTopic 一个主题的排名结果
type rankedTopic struct {
	topic    model.Topic
	existing []string
	result   *ranking.Result
}

// topicFilter 仓库查询用的主题过滤，空串表示全部
func (s *RunState) topicFilter() string {
	return string(s.Request.Topic)
}

// excludedIDs 本次运行中已处理但仍有未回答问题的子主题
func (s *RunState) excludedIDs() []uint {
	ids := make([]uint, 0, len(s.excluded))
	for id := range s.excluded {
		ids = append(ids, id)
	}
	return ids
}
