package pipeline

import (
	"context"
	"fmt"

	"github.com/ashwinyue/next-dataset/internal/service/export"
)

// exportRecords 导出全部已回答的记录
func (o *Orchestrator) exportRecords(ctx context.Context, s *RunState) (*RunState, error) {
	answered, err := s.repos.QA.ListAnswered()
	if err != nil {
		return nil, fmt.Errorf("failed to list answered records: %w", err)
	}

	records := make([]export.Record, 0, len(answered))
	for _, qa := range answered {
		records = append(records, export.Record{Question: qa.Question, Answer: *qa.Answer})
	}
	s.Report.Rows = len(records)

	res, err := o.exporter.Write(ctx, s.route.format, records, o.now())
	if err != nil {
		return nil, err
	}
	s.Report.Export = res
	return s, nil
}
