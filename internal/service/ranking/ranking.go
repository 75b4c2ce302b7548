// Package ranking 提供子主题生成与排名
// 固定迭代 5 次：生成候选、打分、取前 25，仅当总分严格更高时替换保留集合
package ranking

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/ashwinyue/next-dataset/internal/service/llm"
	"github.com/ashwinyue/next-dataset/internal/service/metrics"
	"github.com/ashwinyue/next-dataset/internal/service/prompt"
	"github.com/cloudwego/eino/compose"
)

const (
	// Iterations 排名迭代次数
	Iterations = 5
	// KeepTop 每轮保留的子主题数
	KeepTop = 25
)

// 节点名称
const (
	NodeGenerateSubtopics = "generate_subtopics"
	NodeScoreSubtopics    = "score_subtopics"
)

// RankedSubtopic 带分数的子主题
type RankedSubtopic struct {
	Subtopic string `json:"subtopic"`
	Score    int    `json:"score"`
}

// Sum 计算总分
func Sum(list []RankedSubtopic) int {
	total := 0
	for _, s := range list {
		total += s.Score
	}
	return total
}

// IsNewSubtopicListBetter 新集合总分严格高于旧集合时返回 true
func IsNewSubtopicListBetter(prev, next []RankedSubtopic) bool {
	return Sum(next) > Sum(prev)
}

// TopN 按分数降序取前 n 个，同分保持原顺序
func TopN(list []RankedSubtopic, n int) []RankedSubtopic {
	sorted := make([]RankedSubtopic, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Result 排名结果
type Result struct {
	Topic    string
	Retained []RankedSubtopic
	// CandidateSums 每轮前 25 候选的总分
	CandidateSums []int
	// RetainedSums 每轮结束后保留集合的总分
	RetainedSums []int
}

// Names 返回保留子主题文本
func (r *Result) Names() []string {
	names := make([]string, len(r.Retained))
	for i, s := range r.Retained {
		names[i] = s.Subtopic
	}
	return names
}

// state 在节点间传递的排名状态
type state struct {
	topic         string
	existing      []string
	iteration     int
	candidates    []string
	retained      []RankedSubtopic
	candidateSums []int
	retainedSums  []int
}

// Ranker 子主题排名器
type Ranker struct {
	gen      *llm.Generator
	metrics  *metrics.Recorder
	runnable compose.Runnable[*state, *state]
}

// NewRanker 创建排名器并编译状态图
func NewRanker(ctx context.Context, gen *llm.Generator, rec *metrics.Recorder) (*Ranker, error) {
	r := &Ranker{gen: gen, metrics: rec}
	runnable, err := r.buildGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build ranking graph: %w", err)
	}
	r.runnable = runnable
	return r, nil
}

// buildGraph 构建状态图
// START → generate_subtopics → score_subtopics → {generate_subtopics | END}
func (r *Ranker) buildGraph(ctx context.Context) (compose.Runnable[*state, *state], error) {
	g := compose.NewGraph[*state, *state]()

	if err := g.AddLambdaNode(NodeGenerateSubtopics, compose.InvokableLambda(r.generate),
		compose.WithNodeName(NodeGenerateSubtopics)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(NodeScoreSubtopics, compose.InvokableLambda(r.score),
		compose.WithNodeName(NodeScoreSubtopics)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, NodeGenerateSubtopics); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeGenerateSubtopics, NodeScoreSubtopics); err != nil {
		return nil, err
	}

	branch := compose.NewGraphBranch(func(ctx context.Context, s *state) (string, error) {
		if s.iteration >= Iterations {
			return compose.END, nil
		}
		return NodeGenerateSubtopics, nil
	}, map[string]bool{
		NodeGenerateSubtopics: true,
		compose.END:           true,
	})
	if err := g.AddBranch(NodeScoreSubtopics, branch); err != nil {
		return nil, err
	}

	return g.Compile(ctx,
		compose.WithGraphName("subtopic_ranking"),
		compose.WithMaxRunSteps(Iterations*2+10),
	)
}

// Rank 为主题生成并排名子主题
// existing 为已存储的子主题，作为生成时的种子
func (r *Ranker) Rank(ctx context.Context, topic string, existing []string) (*Result, error) {
	s, err := r.runnable.Invoke(ctx, &state{topic: topic, existing: existing})
	if err != nil {
		return nil, fmt.Errorf("failed to rank subtopics for %s: %w", topic, err)
	}
	r.metrics.SetRankingScore(topic, Sum(s.retained))
	return &Result{
		Topic:         topic,
		Retained:      s.retained,
		CandidateSums: s.candidateSums,
		RetainedSums:  s.retainedSums,
	}, nil
}

// generate 生成候选子主题，第二轮起以保留集合和已有子主题为种子
func (r *Ranker) generate(ctx context.Context, s *state) (*state, error) {
	seeds := append([]string(nil), s.existing...)
	for _, rs := range s.retained {
		seeds = append(seeds, rs.Subtopic)
	}

	msgs, err := prompt.GenerateSubtopics(ctx, s.topic, llm.MaxListItems, seeds)
	if err != nil {
		return nil, err
	}
	out, err := llm.Structured[llm.Subtopics](ctx, r.gen, llm.ProfileCreative, msgs)
	if err != nil {
		return nil, err
	}
	s.candidates = out.Subtopics
	return s, nil
}

// score 打分、取前 25，并与保留集合比较
func (r *Ranker) score(ctx context.Context, s *state) (*state, error) {
	msgs, err := prompt.RankSubtopics(ctx, s.topic, s.candidates)
	if err != nil {
		return nil, err
	}
	out, err := llm.Structured[llm.SubtopicRanking](ctx, r.gen, llm.ProfileFast, msgs)
	if err != nil {
		return nil, err
	}

	scored := make([]RankedSubtopic, 0, len(out.Subtopics))
	seen := make(map[string]bool, len(out.Subtopics))
	for _, item := range out.Subtopics {
		key := strings.ToLower(strings.TrimSpace(item.Subtopic))
		if seen[key] || len(scored) == llm.MaxListItems {
			continue
		}
		seen[key] = true
		scored = append(scored, RankedSubtopic{Subtopic: strings.TrimSpace(item.Subtopic), Score: item.Score})
	}

	top := TopN(scored, KeepTop)
	s.iteration++
	s.candidateSums = append(s.candidateSums, Sum(top))

	if s.retained == nil || IsNewSubtopicListBetter(s.retained, top) {
		log.Printf("[ranking] %s iteration %d: retained new set (sum %d > %d)",
			s.topic, s.iteration, Sum(top), Sum(s.retained))
		s.retained = top
	}
	s.retainedSums = append(s.retainedSums, Sum(s.retained))
	return s, nil
}
