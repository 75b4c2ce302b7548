package pipeline

import (
	"context"

	"github.com/cloudwego/eino/compose"
)

// 节点名称
const (
	NodeRetrieveBaseDataset   = "retrieve_base_dataset"
	NodeGenerateResponses     = "generate_responses"
	NodeInsertResponses       = "insert_responses"
	NodeSaveJSONL             = "save_jsonl"
	NodeRankSubtopics         = "rank_subtopics"
	NodeSaveSubtopics         = "save_subtopics"
	NodeLoadQuestionSubtopics = "load_question_subtopics"
	NodeGenerateQuestions     = "generate_questions"
	NodeSaveQuestions         = "save_questions"
	NodeNextAnswerSubtopic    = "next_answer_subtopic"
	NodeLoadUnanswered        = "load_unanswered"
	NodeSaveAnswers           = "save_answers"
	NodeExportRecords         = "export_records"
)

// buildGraph 构建顶层状态图
//
//	START ─┬─ retrieve_base_dataset → generate_responses → insert_responses → save_jsonl → END
//	       ├─ rank_subtopics → save_subtopics → END
//	       ├─ load_question_subtopics → generate_questions ⇄ save_questions → END
//	       ├─ next_answer_subtopic → load_unanswered → generate_responses → save_answers ⇄ next_answer_subtopic → END
//	       └─ export_records → END
func (o *Orchestrator) buildGraph(ctx context.Context) (compose.Runnable[*RunState, *RunState], error) {
	g := compose.NewGraph[*RunState, *RunState]()

	nodes := []struct {
		key string
		fn  func(ctx context.Context, s *RunState) (*RunState, error)
	}{
		{NodeRetrieveBaseDataset, o.retrieveBaseDataset},
		{NodeGenerateResponses, o.generateResponses},
		{NodeInsertResponses, o.insertResponses},
		{NodeSaveJSONL, o.saveJSONL},
		{NodeRankSubtopics, o.rankSubtopics},
		{NodeSaveSubtopics, o.saveSubtopics},
		{NodeLoadQuestionSubtopics, o.loadQuestionSubtopics},
		{NodeGenerateQuestions, o.generateQuestions},
		{NodeSaveQuestions, o.saveQuestions},
		{NodeNextAnswerSubtopic, o.nextAnswerSubtopic},
		{NodeLoadUnanswered, o.loadUnanswered},
		{NodeSaveAnswers, o.saveAnswers},
		{NodeExportRecords, o.exportRecords},
	}
	for _, n := range nodes {
		if err := g.AddLambdaNode(n.key, compose.InvokableLambda(n.fn), compose.WithNodeName(n.key)); err != nil {
			return nil, err
		}
	}

	// 模式路由：入口分支由路由表生成
	entries := make(map[string]bool)
	for _, rt := range routes {
		entries[rt.entry] = true
	}
	modeBranch := compose.NewGraphBranch(func(ctx context.Context, s *RunState) (string, error) {
		return s.route.entry, nil
	}, entries)
	if err := g.AddBranch(compose.START, modeBranch); err != nil {
		return nil, err
	}

	edges := [][2]string{
		// 提示词测试
		{NodeRetrieveBaseDataset, NodeGenerateResponses},
		{NodeInsertResponses, NodeSaveJSONL},
		{NodeSaveJSONL, compose.END},
		// 子主题
		{NodeRankSubtopics, NodeSaveSubtopics},
		{NodeSaveSubtopics, compose.END},
		// 问题
		{NodeGenerateQuestions, NodeSaveQuestions},
		// 回答
		{NodeLoadUnanswered, NodeGenerateResponses},
		{NodeSaveAnswers, NodeNextAnswerSubtopic},
		// 导出
		{NodeExportRecords, compose.END},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}

	branches := []struct {
		from    string
		fn      func(ctx context.Context, s *RunState) (string, error)
		targets []string
	}{
		{
			// 回答生成后：提示词测试插入新行，回答流水线回写答案
			from: NodeGenerateResponses,
			fn: func(ctx context.Context, s *RunState) (string, error) {
				if s.route.testing {
					return NodeInsertResponses, nil
				}
				return NodeSaveAnswers, nil
			},
			targets: []string{NodeInsertResponses, NodeSaveAnswers},
		},
		{
			from: NodeLoadQuestionSubtopics,
			fn: func(ctx context.Context, s *RunState) (string, error) {
				if len(s.subtopics) == 0 {
					return compose.END, nil
				}
				return NodeGenerateQuestions, nil
			},
			targets: []string{NodeGenerateQuestions, compose.END},
		},
		{
			// 按下标逐个处理子主题
			from: NodeSaveQuestions,
			fn: func(ctx context.Context, s *RunState) (string, error) {
				if s.index < len(s.subtopics) {
					return NodeGenerateQuestions, nil
				}
				return compose.END, nil
			},
			targets: []string{NodeGenerateQuestions, compose.END},
		},
		{
			// 没有下一个子主题时结束
			from: NodeNextAnswerSubtopic,
			fn: func(ctx context.Context, s *RunState) (string, error) {
				if s.current == nil {
					return compose.END, nil
				}
				return NodeLoadUnanswered, nil
			},
			targets: []string{NodeLoadUnanswered, compose.END},
		},
	}
	for _, b := range branches {
		targets := make(map[string]bool, len(b.targets))
		for _, t := range b.targets {
			targets[t] = true
		}
		if err := g.AddBranch(b.from, compose.NewGraphBranch(b.fn, targets)); err != nil {
			return nil, err
		}
	}

	return g.Compile(ctx,
		compose.WithGraphName("dataset_pipeline"),
		compose.WithMaxRunSteps(o.cfg.Pipeline.MaxRunSteps),
	)
}
