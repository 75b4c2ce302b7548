package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/repository"
	"github.com/ashwinyue/next-dataset/internal/service/fanout"
	"github.com/ashwinyue/next-dataset/internal/service/judge"
	"gorm.io/gorm"
)

// ========== 问题流水线 ==========

// loadQuestionSubtopics 读取尚未生成问题的子主题
func (o *Orchestrator) loadQuestionSubtopics(ctx context.Context, s *RunState) (*RunState, error) {
	subtopics, err := s.repos.Subtopic.ListPendingQuestions(s.topicFilter())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending subtopics: %w", err)
	}
	s.subtopics = subtopics
	s.index = 0
	s.Report.QuestionSubtopics = len(subtopics)
	log.Printf("[pipeline] %d subtopics pending questions", len(subtopics))
	return s, nil
}

// generateQuestions 对当前下标的子主题执行问题集重试循环
func (o *Orchestrator) generateQuestions(ctx context.Context, s *RunState) (*RunState, error) {
	sub := s.subtopics[s.index]
	s.questions = nil

	res, err := o.questionLoop.Run(ctx, &judge.Input{
		Topic:      sub.Topic,
		Subtopic:   sub.Text,
		Subject:    sub.Text,
		SubtopicID: sub.ID,
	})
	if err != nil {
		if o.dispatcher.Policy() == fanout.PolicyPartial && ctx.Err() == nil {
			s.Report.addFailure(NodeGenerateQuestions, sub.ID, 0, err)
			return s, nil
		}
		return nil, err
	}

	s.Report.LoopRuns++
	if !res.Accepted {
		s.Report.FallbackAccepted++
	}
	s.questions = res
	return s, nil
}

// saveQuestions 插入问题（答案为空）并标记子主题，然后前进到下一个
func (o *Orchestrator) saveQuestions(ctx context.Context, s *RunState) (*RunState, error) {
	sub := s.subtopics[s.index]
	s.index++
	if s.questions == nil {
		return s, nil
	}

	now := o.now()
	records := make([]*model.QuestionAnswer, 0, len(s.questions.Artifact))
	for _, q := range s.questions.Artifact {
		records = append(records, &model.QuestionAnswer{
			CreatedAt:  now,
			Question:   q,
			SubtopicID: sub.ID,
		})
	}

	err := s.repos.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)
		if err := repos.QA.CreateBatch(records); err != nil {
			return err
		}
		return repos.Subtopic.MarkQuestionsGenerated(sub.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save questions for subtopic %d: %w", sub.ID, err)
	}

	s.Report.InsertedRecords += len(records)
	o.metrics.AddPersisted(tableQuestionsAnswers, len(records))
	log.Printf("[pipeline] saved %d questions for subtopic %d (%d/%d)", len(records), sub.ID, s.index, len(s.subtopics))
	return s, nil
}
