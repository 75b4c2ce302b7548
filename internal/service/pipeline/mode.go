package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ashwinyue/next-dataset/internal/service/export"
)

// ErrUnknownMode 未知运行模式，在任何副作用之前返回
var ErrUnknownMode = errors.New("unknown run mode")

// Mode 运行模式（封闭集合）
type Mode string

const (
	ModePromptTestingSome      Mode = "prompt_testing_some"
	ModePromptTestingAll       Mode = "prompt_testing_all"
	ModeSubtopicGeneration     Mode = "subtopic_generation"
	ModeSubtopicNewGeneration  Mode = "subtopic_new_generation"
	ModeQuestionGeneration     Mode = "question_generation"
	ModeResponseGeneration     Mode = "response_generation"
	ModeResponseGenerationSome Mode = "response_generation_some"
	ModeOutputJSONL            Mode = "output_jsonl"
	ModeOutputCSV              Mode = "output_csv"
)

// route 模式对应的入口节点和变体参数
type route struct {
	entry   string
	testing bool          // 使用 -test 存储
	some    bool          // 只处理一批
	newOnly bool          // 只保存新子主题
	format  export.Format // 导出格式
}

// routes 模式路由表，图的入口分支由此生成
var routes = map[Mode]route{
	ModePromptTestingSome:      {entry: NodeRetrieveBaseDataset, testing: true, some: true},
	ModePromptTestingAll:       {entry: NodeRetrieveBaseDataset, testing: true},
	ModeSubtopicGeneration:     {entry: NodeRankSubtopics},
	ModeSubtopicNewGeneration:  {entry: NodeRankSubtopics, newOnly: true},
	ModeQuestionGeneration:     {entry: NodeLoadQuestionSubtopics},
	ModeResponseGeneration:     {entry: NodeNextAnswerSubtopic},
	ModeResponseGenerationSome: {entry: NodeNextAnswerSubtopic, some: true},
	ModeOutputJSONL:            {entry: NodeExportRecords, format: export.FormatJSONL},
	ModeOutputCSV:              {entry: NodeExportRecords, format: export.FormatCSV},
}

// AllModes 返回全部模式
func AllModes() []Mode {
	return []Mode{
		ModePromptTestingSome,
		ModePromptTestingAll,
		ModeSubtopicGeneration,
		ModeSubtopicNewGeneration,
		ModeQuestionGeneration,
		ModeResponseGeneration,
		ModeResponseGenerationSome,
		ModeOutputJSONL,
		ModeOutputCSV,
	}
}

// ParseMode 解析运行模式
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Valid 是否为已知模式
func (m Mode) Valid() bool {
	_, ok := routes[m]
	return ok
}

// IsPromptTesting 是否使用提示词测试存储
func (m Mode) IsPromptTesting() bool {
	return routes[m].testing
}
