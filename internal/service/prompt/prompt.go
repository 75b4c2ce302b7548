// Package prompt 提供数据集生成各步骤的提示词模板
// 模板使用 eino FString 格式，变量以 {name} 表示
package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// ========== 回答 ==========

const answerSystem = `You are an expert at generating data for fine-tuning small instruction-tuned LLMs.
Given the topic {topic} and the subtopic {subtopic}, answer the question provided by the user.
Keep the answer concise and accurate, written in plain prose of two to four sentences.
Do not cite sources and do not prefix the answer with "A:".
Here are some examples of the expected style:
    Q: What is the role of temperature setting in prompt engineering?
    A: Temperature controls the randomness of AI responses. Lower values produce more focused, deterministic outputs, while higher values generate more creative, diverse responses. It is crucial for balancing precision versus creativity.
    Q: How do Foundational Models address the problem of data efficiency?
    A: Foundational Models improve data efficiency by learning general representations from large-scale pre-training, requiring fewer labeled examples for specific tasks.`

const chooseBestResponseSystem = `You are judging answers for an instruction-tuning dataset.
The topic is {topic}, the subtopic is {subtopic}, and the question is: {question}
Two candidate answers are given by the user, numbered 1 and 2.
Pick the answer that is more accurate, more concise and better suited as training data.
Return the chosen answer copied exactly, without any change.`

const checkResponseRelevanceSystem = `You are reviewing an answer for an instruction-tuning dataset.
The topic is {topic}, the subtopic is {subtopic}, and the question is: {question}
Decide whether the answer given by the user is both relevant to the question and factually accurate.`

// ========== 子主题 ==========

const generateSubtopicsSystem = `You are an expert curriculum designer building a dataset about a single topic.
Generate up to {num_subtopics} distinct, specific subtopics for the topic given by the user.
Each subtopic must be a short phrase of at most eight words.
{existing}`

const rankSubtopicsSystem = `You are an expert on {topic}.
Score each subtopic given by the user from 1 to 10 by how important and useful it is for learning {topic}.
Return every subtopic with its score, keeping the subtopic text unchanged.`

// ========== 问题 ==========

const generateQuestionsSystem = `You are an expert at generating data for fine-tuning small instruction-tuned LLMs.
Given the topic {topic} and the subtopic {subtopic}, generate at least 5 and at most 50 questions about the subtopic.
Here are some examples to guide you:
    - What is the role of temperature setting in prompt engineering?
    - Explain the importance of prompt testing and iteration.
    - What are the key architectural components of a typical Foundational Model?`

const chooseBestQuestionsSystem = `You are judging question sets for an instruction-tuning dataset.
The topic is {topic} and the subtopic is {subtopic}.
Two candidate question sets are given by the user, numbered 1 and 2.
Pick the set whose questions are more relevant, more diverse and better phrased.`

const checkQuestionRelevanceSystem = `You are reviewing questions for an instruction-tuning dataset.
The topic is {topic} and the subtopic is {subtopic}.
Decide whether the questions given by the user are all relevant to the subtopic and factually sound.`

var (
	answerTemplate = prompt.FromMessages(schema.FString,
		schema.SystemMessage(answerSystem),
		schema.UserMessage("{question}"),
	)
	chooseBestResponseTemplate = prompt.FromMessages(schema.FString,
		schema.SystemMessage(chooseBestResponseSystem),
		schema.UserMessage("1. {response1}\n\n2. {response2}"),
	)
	checkResponseRelevanceTemplate = prompt.FromMessages(schema.FString,
		schema.SystemMessage(checkResponseRelevanceSystem),
		schema.UserMessage("Response: {response}"),
	)
	generateSubtopicsTemplate = prompt.FromMessages(schema.FString,
		schema.SystemMessage(generateSubtopicsSystem),
		schema.UserMessage("{topic}"),
	)
	rankSubtopicsTemplate = prompt.FromMessages(schema.FString,
		schema.SystemMessage(rankSubtopicsSystem),
		schema.UserMessage("{subtopics}"),
	)
	generateQuestionsTemplate = prompt.FromMessages(schema.FString,
		schema.SystemMessage(generateQuestionsSystem),
		schema.UserMessage("Subtopic: {subtopic}"),
	)
	chooseBestQuestionsTemplate = prompt.FromMessages(schema.FString,
		schema.SystemMessage(chooseBestQuestionsSystem),
		schema.UserMessage("1.\n{questions1}\n\n2.\n{questions2}"),
	)
	checkQuestionRelevanceTemplate = prompt.FromMessages(schema.FString,
		schema.SystemMessage(checkQuestionRelevanceSystem),
		schema.UserMessage("Questions:\n{questions}"),
	)
)

// Answer 回答一个问题
func Answer(ctx context.Context, topic, subtopic, question string) ([]*schema.Message, error) {
	return answerTemplate.Format(ctx, map[string]any{
		"topic":    topic,
		"subtopic": subtopic,
		"question": question,
	})
}

// ChooseBestResponse 在两个回答中选择
func ChooseBestResponse(ctx context.Context, topic, subtopic, question, response1, response2 string) ([]*schema.Message, error) {
	return chooseBestResponseTemplate.Format(ctx, map[string]any{
		"topic":     topic,
		"subtopic":  subtopic,
		"question":  question,
		"response1": response1,
		"response2": response2,
	})
}

// CheckResponseRelevance 判定回答是否相关且准确
func CheckResponseRelevance(ctx context.Context, topic, subtopic, question, response string) ([]*schema.Message, error) {
	return checkResponseRelevanceTemplate.Format(ctx, map[string]any{
		"topic":    topic,
		"subtopic": subtopic,
		"question": question,
		"response": response,
	})
}

// GenerateSubtopics 生成子主题，existing 非空时要求避开已有子主题
func GenerateSubtopics(ctx context.Context, topic string, num int, existing []string) ([]*schema.Message, error) {
	hint := ""
	if len(existing) > 0 {
		hint = "Do not repeat or rephrase any of these existing subtopics:\n" + strings.Join(existing, "\n")
	}
	return generateSubtopicsTemplate.Format(ctx, map[string]any{
		"topic":         topic,
		"num_subtopics": num,
		"existing":      hint,
	})
}

// RankSubtopics 为子主题打分
func RankSubtopics(ctx context.Context, topic string, subtopics []string) ([]*schema.Message, error) {
	return rankSubtopicsTemplate.Format(ctx, map[string]any{
		"topic":     topic,
		"subtopics": Numbered(subtopics),
	})
}

// GenerateQuestions 为子主题生成问题
func GenerateQuestions(ctx context.Context, topic, subtopic string) ([]*schema.Message, error) {
	return generateQuestionsTemplate.Format(ctx, map[string]any{
		"topic":    topic,
		"subtopic": subtopic,
	})
}

// ChooseBestQuestions 在两个问题集中选择
func ChooseBestQuestions(ctx context.Context, topic, subtopic string, questions1, questions2 []string) ([]*schema.Message, error) {
	return chooseBestQuestionsTemplate.Format(ctx, map[string]any{
		"topic":      topic,
		"subtopic":   subtopic,
		"questions1": Numbered(questions1),
		"questions2": Numbered(questions2),
	})
}

// CheckQuestionRelevance 判定问题集是否相关
func CheckQuestionRelevance(ctx context.Context, topic, subtopic string, questions []string) ([]*schema.Message, error) {
	return checkQuestionRelevanceTemplate.Format(ctx, map[string]any{
		"topic":     topic,
		"subtopic":  subtopic,
		"questions": Numbered(questions),
	})
}

// Numbered 将列表渲染为 "1. xxx" 的编号文本
func Numbered(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, item)
	}
	return sb.String()
}
