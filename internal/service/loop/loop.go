// Package loop 提供"生成候选 → 选优 → 相关性判定 → 重新生成"的重试状态机
// 基于 eino compose.Graph 构建，判定不通过时回到生成节点形成环
package loop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/ashwinyue/next-dataset/internal/service/judge"
	"github.com/ashwinyue/next-dataset/internal/service/llm"
	"github.com/ashwinyue/next-dataset/internal/service/metrics"
	"github.com/cloudwego/eino/compose"
)

// ErrRelevanceExhausted 达到最大尝试次数仍未通过判定（reject 策略）
var ErrRelevanceExhausted = errors.New("relevance check exhausted")

// 节点名称
const (
	NodeGenerateCandidates = "generate_candidates"
	NodePickBest           = "pick_best"
	NodeCheckRelevance     = "check_relevance"
)

// 结束原因，用于指标
const (
	OutcomeAccepted  = "accepted"
	OutcomeExhausted = "exhausted"
	OutcomeFallback  = "accept_last"
)

// Fallback 尝试次数耗尽时的处理策略
type Fallback string

const (
	// FallbackReject 返回 ErrRelevanceExhausted
	FallbackReject Fallback = "reject"
	// FallbackAcceptLast 返回最后一次选出的候选，标记为未通过
	FallbackAcceptLast Fallback = "accept_last"
)

// Config 重试循环配置
type Config struct {
	// MaxAttempts 最大尝试次数，0 表示不限制
	MaxAttempts int
	Fallback    Fallback
}

// Result 循环结果，携带原始输入以便回溯到来源行
type Result[A any] struct {
	Input    *judge.Input
	Artifact A
	Attempts int
	Accepted bool
}

// state 在节点间传递的循环状态
type state[A any] struct {
	input    *judge.Input
	pair     judge.Pair[A]
	chosen   A
	attempts int
	accepted bool
}

// RetryLoop 重试状态机
type RetryLoop[A any] struct {
	kind     string
	arbiter  judge.Arbiter[A]
	gate     judge.Gate[A]
	cfg      Config
	metrics  *metrics.Recorder
	runnable compose.Runnable[*state[A], *state[A]]
}

// New 创建重试循环并编译状态图
func New[A any](ctx context.Context, kind string, arbiter judge.Arbiter[A], gate judge.Gate[A], cfg Config, rec *metrics.Recorder) (*RetryLoop[A], error) {
	if arbiter == nil || gate == nil {
		return nil, fmt.Errorf("arbiter and gate are required")
	}
	if cfg.MaxAttempts < 0 {
		return nil, fmt.Errorf("max attempts must not be negative: %d", cfg.MaxAttempts)
	}
	if cfg.Fallback == "" {
		cfg.Fallback = FallbackReject
	}

	l := &RetryLoop[A]{
		kind:    kind,
		arbiter: arbiter,
		gate:    gate,
		cfg:     cfg,
		metrics: rec,
	}
	r, err := l.buildGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s loop graph: %w", kind, err)
	}
	l.runnable = r
	return l, nil
}

// NewResponseLoop 创建回答重试循环
func NewResponseLoop(ctx context.Context, gen *llm.Generator, cfg Config, rec *metrics.Recorder) (*RetryLoop[string], error) {
	return New[string](ctx, judge.KindResponse, judge.NewResponseArbiter(gen), judge.NewResponseGate(gen, rec), cfg, rec)
}

// NewQuestionLoop 创建问题集重试循环
func NewQuestionLoop(ctx context.Context, gen *llm.Generator, cfg Config, rec *metrics.Recorder) (*RetryLoop[[]string], error) {
	return New[[]string](ctx, judge.KindQuestion, judge.NewQuestionArbiter(gen), judge.NewQuestionGate(gen, rec), cfg, rec)
}

// buildGraph 构建状态图
// START → generate_candidates → pick_best → check_relevance → {generate_candidates | END}
func (l *RetryLoop[A]) buildGraph(ctx context.Context) (compose.Runnable[*state[A], *state[A]], error) {
	g := compose.NewGraph[*state[A], *state[A]]()

	generateNode := compose.InvokableLambda(func(ctx context.Context, s *state[A]) (*state[A], error) {
		s.attempts++
		pair, err := l.arbiter.Candidates(ctx, s.input)
		if err != nil {
			return nil, err
		}
		s.pair = pair
		return s, nil
	})

	pickNode := compose.InvokableLambda(func(ctx context.Context, s *state[A]) (*state[A], error) {
		chosen, err := l.arbiter.Pick(ctx, s.input, s.pair)
		if err != nil {
			return nil, err
		}
		s.chosen = chosen
		return s, nil
	})

	checkNode := compose.InvokableLambda(func(ctx context.Context, s *state[A]) (*state[A], error) {
		ok, err := l.gate.Check(ctx, s.input, s.chosen)
		if err != nil {
			return nil, err
		}
		s.accepted = ok
		if !ok {
			log.Printf("[loop] %s rejected (subtopic_id=%d qa_id=%d attempt=%d)",
				l.kind, s.input.SubtopicID, s.input.QAID, s.attempts)
		}
		return s, nil
	})

	if err := g.AddLambdaNode(NodeGenerateCandidates, generateNode, compose.WithNodeName(NodeGenerateCandidates)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(NodePickBest, pickNode, compose.WithNodeName(NodePickBest)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(NodeCheckRelevance, checkNode, compose.WithNodeName(NodeCheckRelevance)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, NodeGenerateCandidates); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeGenerateCandidates, NodePickBest); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodePickBest, NodeCheckRelevance); err != nil {
		return nil, err
	}

	// 判定通过或尝试次数耗尽时结束，否则重新生成
	branch := compose.NewGraphBranch(func(ctx context.Context, s *state[A]) (string, error) {
		if s.accepted || l.exhausted(s.attempts) {
			return compose.END, nil
		}
		return NodeGenerateCandidates, nil
	}, map[string]bool{
		NodeGenerateCandidates: true,
		compose.END:            true,
	})
	if err := g.AddBranch(NodeCheckRelevance, branch); err != nil {
		return nil, err
	}

	return g.Compile(ctx,
		compose.WithGraphName(l.kind+"_retry_loop"),
		compose.WithMaxRunSteps(l.maxRunSteps()),
	)
}

// Run 对一个输入执行重试循环
func (l *RetryLoop[A]) Run(ctx context.Context, in *judge.Input) (*Result[A], error) {
	s, err := l.runnable.Invoke(ctx, &state[A]{input: in})
	if err != nil {
		return nil, fmt.Errorf("%s loop failed (subtopic_id=%d qa_id=%d): %w", l.kind, in.SubtopicID, in.QAID, err)
	}

	res := &Result[A]{
		Input:    in,
		Artifact: s.chosen,
		Attempts: s.attempts,
		Accepted: s.accepted,
	}
	if s.accepted {
		l.metrics.ObserveLoop(l.kind, s.attempts, OutcomeAccepted)
		return res, nil
	}

	if l.cfg.Fallback == FallbackAcceptLast {
		log.Printf("[loop] %s accepted last candidate after %d attempts (subtopic_id=%d qa_id=%d)",
			l.kind, s.attempts, in.SubtopicID, in.QAID)
		l.metrics.ObserveLoop(l.kind, s.attempts, OutcomeFallback)
		return res, nil
	}
	l.metrics.ObserveLoop(l.kind, s.attempts, OutcomeExhausted)
	return nil, fmt.Errorf("%w: %s after %d attempts (subtopic_id=%d qa_id=%d)",
		ErrRelevanceExhausted, l.kind, s.attempts, in.SubtopicID, in.QAID)
}

// MaxAttempts 返回配置的最大尝试次数
func (l *RetryLoop[A]) MaxAttempts() int {
	return l.cfg.MaxAttempts
}

func (l *RetryLoop[A]) exhausted(attempts int) bool {
	return l.cfg.MaxAttempts > 0 && attempts >= l.cfg.MaxAttempts
}

// maxRunSteps 每次尝试执行 3 个节点
func (l *RetryLoop[A]) maxRunSteps() int {
	if l.cfg.MaxAttempts == 0 {
		return math.MaxInt32
	}
	return l.cfg.MaxAttempts*3 + 10
}
