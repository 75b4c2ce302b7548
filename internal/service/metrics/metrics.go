// Package metrics 提供流水线运行指标
// 批处理没有 HTTP 端口，指标在运行结束时写入 textfile（node_exporter 收集）
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 状态标签
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Recorder 指标记录器
// nil Recorder 的所有方法都是空操作
type Recorder struct {
	registry *prometheus.Registry

	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	relevanceChecks    *prometheus.CounterVec
	loopAttempts       *prometheus.CounterVec
	loopOutcomes       *prometheus.CounterVec
	fanoutItems        *prometheus.CounterVec
	persistedRecords   *prometheus.CounterVec
	rankingScore       *prometheus.GaugeVec
}

// NewRecorder 创建指标记录器，使用独立 registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_generations_total",
				Help: "Total number of structured generation calls",
			},
			[]string{"profile", "schema", "status"},
		),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dataset_generation_duration_seconds",
				Help:    "Duration of structured generation calls",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"profile"},
		),
		relevanceChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_relevance_checks_total",
				Help: "Total number of relevance checks by verdict",
			},
			[]string{"kind", "verdict"},
		),
		loopAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_loop_attempts_total",
				Help: "Total number of retry loop attempts",
			},
			[]string{"kind"},
		),
		loopOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_loop_outcomes_total",
				Help: "Total number of finished retry loops by outcome",
			},
			[]string{"kind", "outcome"},
		),
		fanoutItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_fanout_items_total",
				Help: "Total number of fan-out items by status",
			},
			[]string{"status"},
		),
		persistedRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataset_persisted_records_total",
				Help: "Total number of records written to the store",
			},
			[]string{"table"},
		),
		rankingScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dataset_ranking_retained_score",
				Help: "Aggregate score of the retained subtopic set",
			},
			[]string{"topic"},
		),
	}

	r.registry.MustRegister(
		r.generations,
		r.generationDuration,
		r.relevanceChecks,
		r.loopAttempts,
		r.loopOutcomes,
		r.fanoutItems,
		r.persistedRecords,
		r.rankingScore,
	)
	return r
}

// Registry 返回底层 registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveGeneration 记录一次结构化生成
func (r *Recorder) ObserveGeneration(profile, schema string, d time.Duration, err error) {
	if r == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	r.generations.WithLabelValues(profile, schema, status).Inc()
	r.generationDuration.WithLabelValues(profile).Observe(d.Seconds())
}

// ObserveRelevance 记录一次相关性判定
func (r *Recorder) ObserveRelevance(kind string, accepted bool) {
	if r == nil {
		return
	}
	verdict := "accepted"
	if !accepted {
		verdict = "rejected"
	}
	r.relevanceChecks.WithLabelValues(kind, verdict).Inc()
}

// ObserveLoop 记录一次重试循环的结束
func (r *Recorder) ObserveLoop(kind string, attempts int, outcome string) {
	if r == nil {
		return
	}
	r.loopAttempts.WithLabelValues(kind).Add(float64(attempts))
	r.loopOutcomes.WithLabelValues(kind, outcome).Inc()
}

// ObserveFanOut 记录一个扇出项的结果
func (r *Recorder) ObserveFanOut(err error) {
	if r == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	r.fanoutItems.WithLabelValues(status).Inc()
}

// AddPersisted 记录写入的记录数
func (r *Recorder) AddPersisted(table string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.persistedRecords.WithLabelValues(table).Add(float64(n))
}

// SetRankingScore 记录排名保留集合的总分
func (r *Recorder) SetRankingScore(topic string, sum int) {
	if r == nil {
		return
	}
	r.rankingScore.WithLabelValues(topic).Set(float64(sum))
}

// WriteTextfile 将指标写入 textfile，path 为空时跳过
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
