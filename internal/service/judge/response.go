package judge

import (
	"context"
	"log"

	"github.com/ashwinyue/next-dataset/internal/service/llm"
	"github.com/ashwinyue/next-dataset/internal/service/metrics"
	"github.com/ashwinyue/next-dataset/internal/service/prompt"
)

// ========== ResponseArbiter ==========

// ResponseArbiter 回答仲裁器
// 返回评审给出的原文，而不是按下标取候选
type ResponseArbiter struct {
	gen *llm.Generator
}

// NewResponseArbiter 创建回答仲裁器
func NewResponseArbiter(gen *llm.Generator) *ResponseArbiter {
	return &ResponseArbiter{gen: gen}
}

// Candidates 并发生成两个回答
func (a *ResponseArbiter) Candidates(ctx context.Context, in *Input) (Pair[string], error) {
	return generatePair(ctx, func(ctx context.Context) (string, error) {
		msgs, err := prompt.Answer(ctx, in.Topic, in.Subtopic, in.Subject)
		if err != nil {
			return "", err
		}
		out, err := llm.Structured[llm.Answer](ctx, a.gen, llm.ProfileCreative, msgs)
		if err != nil {
			return "", err
		}
		return out.Answer, nil
	})
}

// Pick 由评审选出更好的回答
func (a *ResponseArbiter) Pick(ctx context.Context, in *Input, pair Pair[string]) (string, error) {
	msgs, err := prompt.ChooseBestResponse(ctx, in.Topic, in.Subtopic, in.Subject, pair.First, pair.Second)
	if err != nil {
		return "", err
	}
	out, err := llm.Structured[llm.BestResponse](ctx, a.gen, llm.ProfileFast, msgs)
	if err != nil {
		return "", err
	}
	if out.BestResponse != pair.First && out.BestResponse != pair.Second {
		log.Printf("[judge] best response differs from both candidates (subtopic_id=%d qa_id=%d)",
			in.SubtopicID, in.QAID)
	}
	return out.BestResponse, nil
}

// ========== ResponseGate ==========

// ResponseGate 回答相关性判定
type ResponseGate struct {
	gen     *llm.Generator
	metrics *metrics.Recorder
}

// NewResponseGate 创建回答相关性判定
func NewResponseGate(gen *llm.Generator, rec *metrics.Recorder) *ResponseGate {
	return &ResponseGate{gen: gen, metrics: rec}
}

// Check 判定回答是否相关且准确
func (g *ResponseGate) Check(ctx context.Context, in *Input, response string) (bool, error) {
	msgs, err := prompt.CheckResponseRelevance(ctx, in.Topic, in.Subtopic, in.Subject, response)
	if err != nil {
		return false, err
	}
	out, err := llm.Structured[llm.Relevance](ctx, g.gen, llm.ProfileFast, msgs)
	if err != nil {
		return false, err
	}
	g.metrics.ObserveRelevance(KindResponse, out.Accepted())
	return out.Accepted(), nil
}

var (
	_ Arbiter[string] = (*ResponseArbiter)(nil)
	_ Gate[string]    = (*ResponseGate)(nil)
)
