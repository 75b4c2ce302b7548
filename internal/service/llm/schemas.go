package llm

import (
	"fmt"
	"strings"
)

// MaxListItems 子主题、问题列表的上限
const MaxListItems = 50

// Schema 结构化输出约束
// 每个输出类型声明名称、JSON 形状和必填校验
type Schema interface {
	SchemaName() string
	Describe() string
	Validate() error
}

// ========== 回答 ==========

// Answer 单个回答
type Answer struct {
	Answer string `json:"answer"`
}

func (*Answer) SchemaName() string { return "answer" }
func (*Answer) Describe() string   { return `{"answer": "<string>"}` }

// Validate 校验必填字段
func (a *Answer) Validate() error {
	if strings.TrimSpace(a.Answer) == "" {
		return fmt.Errorf("missing field: answer")
	}
	return nil
}

// BestResponse 评审选出的回答原文
type BestResponse struct {
	BestResponse string `json:"best_response"`
}

func (*BestResponse) SchemaName() string { return "best_response" }
func (*BestResponse) Describe() string   { return `{"best_response": "<string>"}` }

// Validate 校验必填字段
func (b *BestResponse) Validate() error {
	if strings.TrimSpace(b.BestResponse) == "" {
		return fmt.Errorf("missing field: best_response")
	}
	return nil
}

// ========== 问题集 ==========

// Questions 问题列表
type Questions struct {
	Questions []string `json:"questions"`
}

func (*Questions) SchemaName() string { return "questions" }
func (*Questions) Describe() string   { return `{"questions": ["<string>", ...]}` }

// Validate 校验非空，超出上限时截断
func (q *Questions) Validate() error {
	q.Questions = compact(q.Questions)
	if len(q.Questions) == 0 {
		return fmt.Errorf("missing field: questions")
	}
	return nil
}

// BestQuestions 评审选出的问题集编号（1 或 2）
type BestQuestions struct {
	Best int `json:"best"`
}

func (*BestQuestions) SchemaName() string { return "best_questions" }
func (*BestQuestions) Describe() string   { return `{"best": 1 or 2}` }

// Validate 校验取值范围
func (b *BestQuestions) Validate() error {
	if b.Best != 1 && b.Best != 2 {
		return fmt.Errorf("invalid field best: %d", b.Best)
	}
	return nil
}

// ========== 相关性 ==========

// Relevance 相关且准确的判定
type Relevance struct {
	IsRelevantAccurate *bool `json:"is_relevant_accurate"`
}

func (*Relevance) SchemaName() string { return "relevance" }
func (*Relevance) Describe() string   { return `{"is_relevant_accurate": true or false}` }

// Validate 校验必填字段
func (r *Relevance) Validate() error {
	if r.IsRelevantAccurate == nil {
		return fmt.Errorf("missing field: is_relevant_accurate")
	}
	return nil
}

// Accepted 判定结果
func (r *Relevance) Accepted() bool {
	return r.IsRelevantAccurate != nil && *r.IsRelevantAccurate
}

// ========== 子主题 ==========

// Subtopics 子主题列表
type Subtopics struct {
	Subtopics []string `json:"subtopics"`
}

func (*Subtopics) SchemaName() string { return "subtopics" }
func (*Subtopics) Describe() string   { return `{"subtopics": ["<string>", ...]}` }

// Validate 校验非空，超出上限时截断
func (s *Subtopics) Validate() error {
	s.Subtopics = compact(s.Subtopics)
	if len(s.Subtopics) == 0 {
		return fmt.Errorf("missing field: subtopics")
	}
	return nil
}

// ScoredSubtopic 带评分的子主题
type ScoredSubtopic struct {
	Subtopic string `json:"subtopic"`
	Score    int    `json:"score"`
}

// SubtopicRanking 子主题评分结果
type SubtopicRanking struct {
	Subtopics []ScoredSubtopic `json:"subtopics"`
}

func (*SubtopicRanking) SchemaName() string { return "subtopic_ranking" }
func (*SubtopicRanking) Describe() string {
	return `{"subtopics": [{"subtopic": "<string>", "score": <integer>}, ...]}`
}

// Validate 校验非空
func (s *SubtopicRanking) Validate() error {
	if len(s.Subtopics) == 0 {
		return fmt.Errorf("missing field: subtopics")
	}
	for i, item := range s.Subtopics {
		if strings.TrimSpace(item.Subtopic) == "" {
			return fmt.Errorf("missing field: subtopics[%d].subtopic", i)
		}
	}
	return nil
}

// compact 去掉空白项并截断到上限
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == MaxListItems {
			break
		}
	}
	return out
}
