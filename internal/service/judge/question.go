package judge

import (
	"context"

	"github.com/ashwinyue/next-dataset/internal/service/llm"
	"github.com/ashwinyue/next-dataset/internal/service/metrics"
	"github.com/ashwinyue/next-dataset/internal/service/prompt"
)

// ========== QuestionArbiter ==========

// QuestionArbiter 问题集仲裁器，按编号 1/2 选择
type QuestionArbiter struct {
	gen *llm.Generator
}

// NewQuestionArbiter 创建问题集仲裁器
func NewQuestionArbiter(gen *llm.Generator) *QuestionArbiter {
	return &QuestionArbiter{gen: gen}
}

// Candidates 并发生成两个问题集
func (a *QuestionArbiter) Candidates(ctx context.Context, in *Input) (Pair[[]string], error) {
	return generatePair(ctx, func(ctx context.Context) ([]string, error) {
		msgs, err := prompt.GenerateQuestions(ctx, in.Topic, in.Subtopic)
		if err != nil {
			return nil, err
		}
		out, err := llm.Structured[llm.Questions](ctx, a.gen, llm.ProfileCreative, msgs)
		if err != nil {
			return nil, err
		}
		return out.Questions, nil
	})
}

// Pick 由评审给出编号，返回对应的问题集
func (a *QuestionArbiter) Pick(ctx context.Context, in *Input, pair Pair[[]string]) ([]string, error) {
	msgs, err := prompt.ChooseBestQuestions(ctx, in.Topic, in.Subtopic, pair.First, pair.Second)
	if err != nil {
		return nil, err
	}
	out, err := llm.Structured[llm.BestQuestions](ctx, a.gen, llm.ProfileFast, msgs)
	if err != nil {
		return nil, err
	}
	if out.Best == 2 {
		return pair.Second, nil
	}
	return pair.First, nil
}

// ========== QuestionGate ==========

// QuestionGate 问题集相关性判定
type QuestionGate struct {
	gen     *llm.Generator
	metrics *metrics.Recorder
}

// NewQuestionGate 创建问题集相关性判定
func NewQuestionGate(gen *llm.Generator, rec *metrics.Recorder) *QuestionGate {
	return &QuestionGate{gen: gen, metrics: rec}
}

// Check 判定问题集是否相关
func (g *QuestionGate) Check(ctx context.Context, in *Input, questions []string) (bool, error) {
	msgs, err := prompt.CheckQuestionRelevance(ctx, in.Topic, in.Subtopic, questions)
	if err != nil {
		return false, err
	}
	out, err := llm.Structured[llm.Relevance](ctx, g.gen, llm.ProfileFast, msgs)
	if err != nil {
		return false, err
	}
	g.metrics.ObserveRelevance(KindQuestion, out.Accepted())
	return out.Accepted(), nil
}

var (
	_ Arbiter[[]string] = (*QuestionArbiter)(nil)
	_ Gate[[]string]    = (*QuestionGate)(nil)
)
