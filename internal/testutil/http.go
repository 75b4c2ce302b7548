package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
)

// ChatRequest chat completions 请求中测试关心的字段
type ChatRequest struct {
	Model       string   `json:"model"`
	Temperature *float32 `json:"temperature"`
	Seed        *int     `json:"seed"`
	MaxTokens   *int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// SchemaMessages 转换为 schema.Message，便于复用 SchemaOf / UserContent
func (r *ChatRequest) SchemaMessages() []*schema.Message {
	msgs := make([]*schema.Message, len(r.Messages))
	for i, m := range r.Messages {
		msgs[i] = &schema.Message{Role: schema.RoleType(m.Role), Content: m.Content}
	}
	return msgs
}

// ChatReply 根据请求返回助手消息内容
type ChatReply func(req *ChatRequest) (string, error)

// ChatServer OpenAI 兼容的 chat completions 测试服务器
type ChatServer struct {
	*httptest.Server

	mu       sync.Mutex
	reply    ChatReply
	requests []*ChatRequest
}

// NewChatServer 启动测试服务器，测试结束时关闭
func NewChatServer(t *testing.T, reply ChatReply) *ChatServer {
	t.Helper()
	s := &ChatServer{reply: reply}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Requests 返回收到的请求
func (s *ChatServer) Requests() []*ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ChatRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *ChatServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		writeError(w, http.StatusNotFound, "not found: "+r.URL.Path)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, &req)
	s.mu.Unlock()

	content, err := s.reply(&req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1760000000,
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": msg, "type": "server_error"},
	})
}
