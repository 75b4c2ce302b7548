package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashwinyue/next-dataset/internal/model"
)

// ========== 子主题流水线 ==========

// rankSubtopics 为请求的主题（未指定时为全部主题）排名子主题
func (o *Orchestrator) rankSubtopics(ctx context.Context, s *RunState) (*RunState, error) {
	topics := model.AllTopics()
	if s.Request.Topic != "" {
		topics = []model.Topic{s.Request.Topic}
	}

	for _, topic := range topics {
		var existing []string
		if s.route.newOnly {
			stored, err := s.repos.Subtopic.ListByTopic(string(topic))
			if err != nil {
				return nil, fmt.Errorf("failed to list subtopics: %w", err)
			}
			for _, st := range stored {
				existing = append(existing, st.Text)
			}
		}

		res, err := o.ranker.Rank(ctx, string(topic), existing)
		if err != nil {
			return nil, err
		}
		s.rankings = append(s.rankings, &rankedTopic{topic: topic, existing: existing, result: res})
	}
	return s, nil
}

// saveSubtopics 保存保留的子主题
// subtopic_new_generation 只保存尚未存储的子主题
func (o *Orchestrator) saveSubtopics(ctx context.Context, s *RunState) (*RunState, error) {
	if s.Report.RankingSums == nil {
		s.Report.RankingSums = make(map[string][]int, len(s.rankings))
	}

	for _, rt := range s.rankings {
		seen := make(map[string]bool, len(rt.existing))
		for _, e := range rt.existing {
			seen[strings.ToLower(strings.TrimSpace(e))] = true
		}

		var subtopics []*model.Subtopic
		for _, name := range rt.result.Names() {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			subtopics = append(subtopics, &model.Subtopic{Topic: string(rt.topic), Text: name})
		}

		if err := s.repos.Subtopic.CreateBatch(subtopics); err != nil {
			return nil, fmt.Errorf("failed to save subtopics for %s: %w", rt.topic, err)
		}
		s.Report.SavedSubtopics += len(subtopics)
		s.Report.RankingSums[string(rt.topic)] = rt.result.RetainedSums
		o.metrics.AddPersisted(tableSubtopics, len(subtopics))
	}
	return s, nil
}
