// Package callback 提供 Eino Callback 日志支持
// 记录图、节点和模型调用的开始、结束和耗时
package callback

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
)

type startKey struct{}

// Logger 日志回调处理器
// 实现 callbacks.Handler 接口；错误总是记录，其余事件仅在调试模式下记录
type Logger struct {
	EnableDebug bool // 是否启用调试模式

	mu     sync.Mutex
	errors int
}

// NewLogger 创建日志回调处理器
func NewLogger(enableDebug bool) *Logger {
	return &Logger{EnableDebug: enableDebug}
}

// OnStart 组件执行开始时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if l.EnableDebug {
		log.Printf("[Eino] start: name=%s type=%s component=%s", info.Name, info.Type, info.Component)
	}
	return context.WithValue(ctx, startKey{}, time.Now())
}

// OnEnd 组件执行成功结束时调用
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if l.EnableDebug {
		log.Printf("[Eino] end: name=%s type=%s component=%s elapsed=%s",
			info.Name, info.Type, info.Component, elapsed(ctx))
	}
	return ctx
}

// OnError 组件执行出错时调用
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
	log.Printf("[Eino] error: name=%s type=%s component=%s elapsed=%s error=%v",
		info.Name, info.Type, info.Component, elapsed(ctx), err)
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

// OnEndWithStreamOutput 流式输出结束时调用
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}

// Errors 返回记录到的错误次数
func (l *Logger) Errors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errors
}

func elapsed(ctx context.Context) time.Duration {
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start).Round(time.Millisecond)
}

var (
	registerOnce sync.Once
	globalLogger *Logger
)

// SetupGlobalCallbacks 设置全局回调，只注册一次
// 返回已注册的 Logger，之后调用的 enableDebug 被忽略
func SetupGlobalCallbacks(enableDebug bool) *Logger {
	registerOnce.Do(func() {
		globalLogger = NewLogger(enableDebug)
		callbacks.AppendGlobalHandlers(globalLogger)
		log.Printf("[Eino] Global callbacks registered (debug=%v)", enableDebug)
	})
	return globalLogger
}
