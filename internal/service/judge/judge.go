// Package judge 提供候选仲裁与相关性判定
// 仲裁：两次 creative 生成并发执行，再由一次 fast 调用选出更好的一个
// 判定：一次 fast 调用，返回"相关且准确"的单一布尔值
package judge

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// 产物类型，用于日志和指标标签
const (
	KindResponse = "response"
	KindQuestion = "question"
)

// Input 一次仲裁/判定的上下文
// Subject 为问题文本（回答）或子主题（问题集）
type Input struct {
	Topic      string
	Subtopic   string
	Subject    string
	SubtopicID uint
	QAID       uint
}

// Pair 同一输入的两个独立候选
type Pair[A any] struct {
	First  A
	Second A
}

// Arbiter 候选仲裁器
type Arbiter[A any] interface {
	// Candidates 并发生成两个候选，任一失败则整体失败
	Candidates(ctx context.Context, in *Input) (Pair[A], error)
	// Pick 在两个候选中选出一个
	Pick(ctx context.Context, in *Input, pair Pair[A]) (A, error)
}

// Gate 相关性判定
type Gate[A any] interface {
	Check(ctx context.Context, in *Input, artifact A) (bool, error)
}

// GenerateAndPick 生成两个候选并选出更好的一个
func GenerateAndPick[A any](ctx context.Context, arb Arbiter[A], in *Input) (A, error) {
	var zero A
	pair, err := arb.Candidates(ctx, in)
	if err != nil {
		return zero, err
	}
	return arb.Pick(ctx, in, pair)
}

// generatePair 并发执行两次生成
func generatePair[A any](ctx context.Context, gen func(ctx context.Context) (A, error)) (Pair[A], error) {
	var pair Pair[A]
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := gen(gctx)
		if err != nil {
			return fmt.Errorf("failed to generate first candidate: %w", err)
		}
		pair.First = a
		return nil
	})
	g.Go(func() error {
		b, err := gen(gctx)
		if err != nil {
			return fmt.Errorf("failed to generate second candidate: %w", err)
		}
		pair.Second = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return Pair[A]{}, err
	}
	return pair, nil
}
