package model

import (
	"fmt"
	"strings"
)

// Topic 顶层主题（封闭集合）
type Topic string

const (
	TopicPromptEngineering  Topic = "Prompt Engineering"
	TopicFoundationalModels Topic = "Foundational Models"
	TopicAgenticAI          Topic = "Agentic AI"
	TopicResponsibleAI      Topic = "Responsible AI"
)

// AllTopics 返回全部主题
func AllTopics() []Topic {
	return []Topic{
		TopicPromptEngineering,
		TopicFoundationalModels,
		TopicAgenticAI,
		TopicResponsibleAI,
	}
}

// Slug 返回主题的命令行写法，如 prompt_engineering
func (t Topic) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(t)), " ", "_")
}

// ParseTopic 解析主题，接受原值或 slug
func ParseTopic(s string) (Topic, error) {
	in := strings.TrimSpace(s)
	for _, t := range AllTopics() {
		if strings.EqualFold(in, string(t)) || strings.EqualFold(in, t.Slug()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown topic: %q", s)
}
