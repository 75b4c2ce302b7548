package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Responder 按调用序号生成回复内容
type Responder func(call int, msgs []*schema.Message) (string, error)

// FakeChatModel 脚本化的 ChatModel，按系统消息中的输出格式名分发
// 可被多个 goroutine 并发调用
type FakeChatModel struct {
	mu         sync.Mutex
	responders map[string]Responder
	calls      map[string]int
}

// NewFakeChatModel 创建脚本化 ChatModel
func NewFakeChatModel() *FakeChatModel {
	return &FakeChatModel{
		responders: make(map[string]Responder),
		calls:      make(map[string]int),
	}
}

// On 为输出格式注册回复函数
func (f *FakeChatModel) On(schemaName string, r Responder) *FakeChatModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responders[schemaName] = r
	return f
}

// Reply 按顺序返回固定回复，用完后重复最后一条
func (f *FakeChatModel) Reply(schemaName string, replies ...string) *FakeChatModel {
	return f.On(schemaName, func(call int, _ []*schema.Message) (string, error) {
		if len(replies) == 0 {
			return "", fmt.Errorf("no reply scripted for %s", schemaName)
		}
		if call >= len(replies) {
			call = len(replies) - 1
		}
		return replies[call], nil
	})
}

// Calls 返回某输出格式的调用次数
func (f *FakeChatModel) Calls(schemaName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[schemaName]
}

// Generate 实现 model.BaseChatModel
func (f *FakeChatModel) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := SchemaOf(msgs)

	f.mu.Lock()
	r, ok := f.responders[name]
	call := f.calls[name]
	f.calls[name]++
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unexpected call for schema %q", name)
	}
	content, err := r(call, msgs)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

// Stream 实现 model.BaseChatModel
func (f *FakeChatModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported")
}

// SchemaOf 从系统消息中取出输出格式名
func SchemaOf(msgs []*schema.Message) string {
	const marker = "JSON object named "
	for _, m := range msgs {
		if m.Role != schema.System {
			continue
		}
		i := strings.Index(m.Content, marker)
		if i < 0 {
			continue
		}
		rest := m.Content[i+len(marker):]
		if j := strings.IndexByte(rest, ' '); j >= 0 {
			return rest[:j]
		}
		return rest
	}
	return ""
}

// UserContent 返回最后一条用户消息内容
func UserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == schema.User {
			return msgs[i].Content
		}
	}
	return ""
}
