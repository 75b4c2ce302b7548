// Package llm 提供结构化生成：一次模型调用，返回类型化结果或 GenerationFailure
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ashwinyue/next-dataset/internal/service/metrics"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrGenerationFailure 生成失败：服务错误、输出格式错误或超时
// 生成器自身不重试，由调用方（重试循环）决定
var ErrGenerationFailure = errors.New("generation failure")

// Profile 生成档位
type Profile string

const (
	// ProfileCreative 内容生成，较高温度
	ProfileCreative Profile = "creative"
	// ProfileFast 评审、打分，温度 0 固定种子
	ProfileFast Profile = "fast"
)

// Generator 结构化生成器
type Generator struct {
	models   map[Profile]model.BaseChatModel
	timeouts map[Profile]time.Duration
	metrics  *metrics.Recorder
}

// Option 生成器选项
type Option func(*Generator)

// WithTimeout 设置档位单次调用超时
func WithTimeout(p Profile, d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeouts[p] = d
		}
	}
}

// WithMetrics 设置指标记录器
func WithMetrics(r *metrics.Recorder) Option {
	return func(g *Generator) {
		g.metrics = r
	}
}

// NewGenerator 创建结构化生成器，两个档位都必须提供模型
func NewGenerator(models map[Profile]model.BaseChatModel, opts ...Option) (*Generator, error) {
	for _, p := range []Profile{ProfileCreative, ProfileFast} {
		if models[p] == nil {
			return nil, fmt.Errorf("chat model is required for profile: %s", p)
		}
	}
	g := &Generator{
		models:   models,
		timeouts: make(map[Profile]time.Duration),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Structured 调用一次模型，将回复解析为 T 并校验必填字段
func Structured[T any, PT interface {
	*T
	Schema
}](ctx context.Context, g *Generator, profile Profile, msgs []*schema.Message) (*T, error) {
	out := new(T)
	target := PT(out)
	name := target.SchemaName()

	start := time.Now()
	err := g.generate(ctx, profile, msgs, target)
	g.metrics.ObserveGeneration(string(profile), name, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrGenerationFailure, profile, name, err)
	}
	return out, nil
}

func (g *Generator) generate(ctx context.Context, profile Profile, msgs []*schema.Message, target Schema) error {
	cm, ok := g.models[profile]
	if !ok {
		return fmt.Errorf("unknown profile: %s", profile)
	}

	if d, ok := g.timeouts[profile]; ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	resp, err := cm.Generate(ctx, withFormatInstruction(msgs, target))
	if err != nil {
		return fmt.Errorf("failed to call model: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("empty response")
	}

	if err := json.Unmarshal([]byte(repairJSON(resp.Content)), target); err != nil {
		return fmt.Errorf("failed to parse output: %w", err)
	}
	return target.Validate()
}

// withFormatInstruction 在系统消息末尾追加 JSON 输出格式要求
func withFormatInstruction(msgs []*schema.Message, target Schema) []*schema.Message {
	instruction := fmt.Sprintf(
		"Respond only with a JSON object named %s of the form %s. Do not add any other text.",
		target.SchemaName(), target.Describe())

	out := make([]*schema.Message, 0, len(msgs)+1)
	if len(msgs) > 0 && msgs[0].Role == schema.System {
		sys := *msgs[0]
		sys.Content = sys.Content + "\n\n" + instruction
		out = append(out, &sys)
		return append(out, msgs[1:]...)
	}
	out = append(out, schema.SystemMessage(instruction))
	return append(out, msgs...)
}
