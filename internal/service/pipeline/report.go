package pipeline

import (
	"fmt"
	"time"

	"github.com/ashwinyue/next-dataset/internal/service/export"
)

// Failure 单个工作单元的失败（partial 策略下记录）
type Failure struct {
	Stage      string `json:"stage"`
	SubtopicID uint   `json:"subtopic_id"`
	QAID       uint   `json:"qa_id,omitempty"`
	Error      string `json:"error"`
}

// RunReport 一次运行的汇总
type RunReport struct {
	RunID      string    `json:"run_id"`
	Mode       Mode      `json:"mode"`
	Topic      string    `json:"topic,omitempty"`
	Store      string    `json:"store"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Rows              int `json:"rows"`
	LoopRuns          int `json:"loop_runs"`
	FallbackAccepted  int `json:"fallback_accepted"`
	InsertedRecords   int `json:"inserted_records"`
	AnsweredRecords   int `json:"answered_records"`
	SavedSubtopics    int `json:"saved_subtopics"`
	QuestionSubtopics int `json:"question_subtopics"`
	AnswerSubtopics   int `json:"answer_subtopics"`

	// RankingSums 每个主题每轮保留集合的总分
	RankingSums map[string][]int `json:"ranking_sums,omitempty"`
	Export      *export.Result   `json:"export,omitempty"`
	Failures    []Failure        `json:"failures,omitempty"`
}

// addFailure 记录一次失败
func (r *RunReport) addFailure(stage string, subtopicID, qaID uint, err error) {
	r.Failures = append(r.Failures, Failure{
		Stage:      stage,
		SubtopicID: subtopicID,
		QAID:       qaID,
		Error:      err.Error(),
	})
}

// String 单行摘要
func (r *RunReport) String() string {
	s := fmt.Sprintf("run=%s mode=%s store=%s rows=%d loops=%d inserted=%d answered=%d subtopics=%d failures=%d",
		r.RunID, r.Mode, r.Store, r.Rows, r.LoopRuns, r.InsertedRecords, r.AnsweredRecords, r.SavedSubtopics, len(r.Failures))
	if r.Export != nil {
		s += " export=" + r.Export.Path
	}
	return s
}
