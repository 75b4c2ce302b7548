package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/repository"
	"github.com/ashwinyue/next-dataset/internal/service/fanout"
	"github.com/ashwinyue/next-dataset/internal/service/judge"
	"github.com/ashwinyue/next-dataset/internal/service/loop"
	"gorm.io/gorm"
)

// ========== 回答生成 ==========

// generateResponses 对每一行并发执行回答重试循环
// 提示词测试和回答流水线共用
func (o *Orchestrator) generateResponses(ctx context.Context, s *RunState) (*RunState, error) {
	report, err := fanout.Dispatch(ctx, o.dispatcher, s.rows,
		func(ctx context.Context, row model.DatasetRow) (*loop.Result[string], error) {
			return o.responseLoop.Run(ctx, &judge.Input{
				Topic:      row.Topic,
				Subtopic:   row.Subtopic,
				Subject:    row.Question,
				SubtopicID: row.SubtopicID,
				QAID:       row.QAID,
			})
		})
	if err != nil {
		return nil, err
	}

	for _, f := range report.Failures {
		s.Report.addFailure(NodeGenerateResponses, f.Row.SubtopicID, f.Row.QAID, f.Err)
	}
	for _, res := range report.Artifacts {
		s.Report.LoopRuns++
		if !res.Accepted {
			s.Report.FallbackAccepted++
		}
	}
	s.responses = report.Artifacts
	log.Printf("[pipeline] generated %d responses (%d failed)", len(report.Artifacts), len(report.Failures))
	return s, nil
}

// ========== 回答流水线 ==========

// nextAnswerSubtopic 选出下一个待回答的子主题，没有时 current 为 nil
func (o *Orchestrator) nextAnswerSubtopic(ctx context.Context, s *RunState) (*RunState, error) {
	s.rows = nil
	s.responses = nil

	next, err := s.repos.Subtopic.NextPendingAnswers(s.topicFilter(), s.excludedIDs()...)
	if err != nil {
		return nil, fmt.Errorf("failed to find next subtopic: %w", err)
	}
	s.current = next
	if next == nil {
		log.Printf("[pipeline] no subtopic left to answer")
		return s, nil
	}
	s.Report.AnswerSubtopics++
	log.Printf("[pipeline] answering subtopic %d: %s", next.ID, next.Text)
	return s, nil
}

// loadUnanswered 读取当前子主题下未回答的问题，_some 变体只取一批
func (o *Orchestrator) loadUnanswered(ctx context.Context, s *RunState) (*RunState, error) {
	limit := 0
	if s.route.some {
		limit = o.cfg.Pipeline.BatchSize
	}
	rows, err := s.repos.QA.ListUnanswered(s.current.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unanswered questions: %w", err)
	}
	s.rows = rows
	s.Report.Rows += len(rows)
	return s, nil
}

// saveAnswers 写回答案，全部回答后标记子主题
// 仍有未回答问题的子主题在本次运行中不再选取
func (o *Orchestrator) saveAnswers(ctx context.Context, s *RunState) (*RunState, error) {
	answers := make(map[uint]string, len(s.responses))
	for _, res := range s.responses {
		answers[res.Input.QAID] = res.Artifact
	}

	var (
		written   int64
		remaining int64
	)
	err := s.repos.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)
		n, err := repos.QA.SetAnswers(answers)
		if err != nil {
			return err
		}
		written = n
		if remaining, err = repos.QA.CountUnanswered(s.current.ID); err != nil {
			return err
		}
		if remaining == 0 {
			return repos.Subtopic.MarkAnswersGenerated(s.current.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save answers for subtopic %d: %w", s.current.ID, err)
	}

	if remaining > 0 {
		s.excluded[s.current.ID] = true
	}
	s.Report.AnsweredRecords += int(written)
	o.metrics.AddPersisted(tableQuestionsAnswers, int(written))
	log.Printf("[pipeline] saved %d answers for subtopic %d (%d remaining)", written, s.current.ID, remaining)
	return s, nil
}
