package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/repository"
	"github.com/ashwinyue/next-dataset/internal/service/export"
)

// 持久化指标的表名标签
const (
	tableSubtopics        = "subtopics"
	tableQuestionsAnswers = "questions_answers"
)

// ========== 提示词测试 ==========

// retrieveBaseDataset 从基线存储读取问答行
// 测试存储为空时先复制基线子主题，保持子主题 ID 一致
func (o *Orchestrator) retrieveBaseDataset(ctx context.Context, s *RunState) (*RunState, error) {
	base, err := o.opener.Open(ctx, o.cfg.Storage.Baseline)
	if err != nil {
		return nil, err
	}
	defer base.Close()
	baseRepos := repository.NewRepositories(base.DB)

	if err := seedSubtopics(baseRepos, s.repos); err != nil {
		return nil, err
	}

	all, err := baseRepos.QA.ListDatasetRows()
	if err != nil {
		return nil, fmt.Errorf("failed to read base dataset: %w", err)
	}
	rows := make([]model.DatasetRow, 0, len(all))
	for _, row := range all {
		if topic := s.topicFilter(); topic != "" && row.Topic != topic {
			continue
		}
		rows = append(rows, row)
	}
	if s.route.some && len(rows) > 1 {
		rows = rows[:1]
	}

	s.rows = rows
	s.Report.Rows = len(rows)
	log.Printf("[pipeline] retrieved %d rows from %s", len(rows), base.Name)
	return s, nil
}

// seedSubtopics 目标存储没有子主题时复制基线子主题
func seedSubtopics(from, to *repository.Repositories) error {
	count, err := to.Subtopic.Count()
	if err != nil {
		return fmt.Errorf("failed to count subtopics: %w", err)
	}
	if count > 0 {
		return nil
	}
	subtopics, err := from.Subtopic.ListAll()
	if err != nil {
		return fmt.Errorf("failed to read base subtopics: %w", err)
	}
	if err := to.Subtopic.CreateBatch(subtopics); err != nil {
		return fmt.Errorf("failed to seed subtopics: %w", err)
	}
	return nil
}

// insertResponses 将生成的回答作为新记录插入测试存储
func (o *Orchestrator) insertResponses(ctx context.Context, s *RunState) (*RunState, error) {
	now := o.now()
	records := make([]*model.QuestionAnswer, 0, len(s.responses))
	for _, res := range s.responses {
		answer := res.Artifact
		records = append(records, &model.QuestionAnswer{
			CreatedAt:  now,
			Question:   res.Input.Subject,
			Answer:     &answer,
			SubtopicID: res.Input.SubtopicID,
		})
	}
	if err := s.repos.QA.CreateBatch(records); err != nil {
		return nil, fmt.Errorf("failed to insert responses: %w", err)
	}

	s.Report.InsertedRecords += len(records)
	o.metrics.AddPersisted(tableQuestionsAnswers, len(records))
	return s, nil
}

// saveJSONL 导出本次生成的回答
func (o *Orchestrator) saveJSONL(ctx context.Context, s *RunState) (*RunState, error) {
	records := make([]export.Record, len(s.responses))
	for i, res := range s.responses {
		records[i] = export.Record{Question: res.Input.Subject, Answer: res.Artifact}
	}
	res, err := o.exporter.Write(ctx, export.FormatJSONL, records, o.now())
	if err != nil {
		return nil, err
	}
	s.Report.Export = res
	return s, nil
}
