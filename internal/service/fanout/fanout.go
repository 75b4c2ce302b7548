// Package fanout 提供对动态集合的并发分发
// 每个元素一次独立调用，结果按完成顺序追加
package fanout

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashwinyue/next-dataset/internal/service/metrics"
	"golang.org/x/sync/errgroup"
)

// Policy 失败处理策略
type Policy string

const (
	// PolicyAbort 任一失败即取消其余调用，整体返回错误且不返回任何产物
	PolicyAbort Policy = "abort"
	// PolicyPartial 每个元素独立成败，失败记入报告
	PolicyPartial Policy = "partial"
)

// ParsePolicy 解析失败处理策略
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, "":
		return PolicyAbort, nil
	case PolicyPartial:
		return PolicyPartial, nil
	default:
		return "", fmt.Errorf("unknown failure policy: %s", s)
	}
}

// Failure 单个元素的失败
type Failure[R any] struct {
	Row R
	Err error
}

// Report 分发结果
// Artifacts 按完成顺序排列
type Report[R, A any] struct {
	Artifacts []A
	Failures  []Failure[R]
}

// Dispatcher 分发器
type Dispatcher struct {
	concurrency int
	policy      Policy
	metrics     *metrics.Recorder
}

// NewDispatcher 创建分发器，concurrency 为 0 表示不限制并发
func NewDispatcher(concurrency int, policy Policy, rec *metrics.Recorder) *Dispatcher {
	if policy == "" {
		policy = PolicyAbort
	}
	return &Dispatcher{concurrency: concurrency, policy: policy, metrics: rec}
}

// Policy 返回失败处理策略
func (d *Dispatcher) Policy() Policy {
	return d.policy
}

// Dispatch 对每一行并发执行 fn
func Dispatch[R, A any](ctx context.Context, d *Dispatcher, rows []R, fn func(ctx context.Context, row R) (A, error)) (*Report[R, A], error) {
	report := &Report[R, A]{Artifacts: make([]A, 0, len(rows))}
	if len(rows) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}

	for _, row := range rows {
		g.Go(func() error {
			// 限流等待期间可能已被取消
			if err := gctx.Err(); err != nil && d.policy == PolicyAbort {
				return err
			}

			artifact, err := fn(gctx, row)
			d.metrics.ObserveFanOut(err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if d.policy == PolicyAbort {
					return err
				}
				report.Failures = append(report.Failures, Failure[R]{Row: row, Err: err})
				return nil
			}
			report.Artifacts = append(report.Artifacts, artifact)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fan-out aborted: %w", err)
	}
	if d.policy == PolicyPartial {
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}
	return report, nil
}
