// Package pipeline 提供数据集生成的顶层编排
// 一个 eino 图，从 START 按运行模式分支到各条流水线
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ashwinyue/next-dataset/internal/config"
	"github.com/ashwinyue/next-dataset/internal/database"
	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/repository"
	"github.com/ashwinyue/next-dataset/internal/service/export"
	"github.com/ashwinyue/next-dataset/internal/service/fanout"
	"github.com/ashwinyue/next-dataset/internal/service/llm"
	"github.com/ashwinyue/next-dataset/internal/service/lock"
	"github.com/ashwinyue/next-dataset/internal/service/loop"
	"github.com/ashwinyue/next-dataset/internal/service/metrics"
	"github.com/ashwinyue/next-dataset/internal/service/ranking"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
)

// RunRequest 一次运行的输入
type RunRequest struct {
	Mode Mode
	// Topic 为空表示全部主题
	Topic model.Topic
	// Date 运行日期，决定数据存储名
	Date time.Time
}

// Deps 编排器依赖
type Deps struct {
	Config    *config.Config
	Generator *llm.Generator
	Opener    *database.Opener
	Exporter  *export.Exporter
	Locker    lock.Locker
	Metrics   *metrics.Recorder
	// Clock 为 nil 时使用 time.Now
	Clock func() time.Time
}

// Orchestrator 顶层编排器
type Orchestrator struct {
	cfg        *config.Config
	opener     *database.Opener
	exporter   *export.Exporter
	locker     lock.Locker
	metrics    *metrics.Recorder
	clock      func() time.Time
	dispatcher *fanout.Dispatcher

	responseLoop *loop.RetryLoop[string]
	questionLoop *loop.RetryLoop[[]string]
	ranker       *ranking.Ranker

	runnable compose.Runnable[*RunState, *RunState]
}

// New 创建编排器并编译状态图
func New(ctx context.Context, deps Deps) (*Orchestrator, error) {
	if deps.Config == nil || deps.Generator == nil || deps.Opener == nil || deps.Exporter == nil {
		return nil, fmt.Errorf("config, generator, opener and exporter are required")
	}
	cfg := deps.Config

	policy, err := fanout.ParsePolicy(cfg.Pipeline.FailurePolicy)
	if err != nil {
		return nil, err
	}
	loopCfg := loop.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		Fallback:    loop.Fallback(cfg.Pipeline.Fallback),
	}

	o := &Orchestrator{
		cfg:        cfg,
		opener:     deps.Opener,
		exporter:   deps.Exporter,
		locker:     deps.Locker,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		dispatcher: fanout.NewDispatcher(cfg.Pipeline.Concurrency, policy, deps.Metrics),
	}
	if o.locker == nil {
		o.locker = lock.NopLocker{}
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	if o.responseLoop, err = loop.NewResponseLoop(ctx, deps.Generator, loopCfg, deps.Metrics); err != nil {
		return nil, err
	}
	if o.questionLoop, err = loop.NewQuestionLoop(ctx, deps.Generator, loopCfg, deps.Metrics); err != nil {
		return nil, err
	}
	if o.ranker, err = ranking.NewRanker(ctx, deps.Generator, deps.Metrics); err != nil {
		return nil, err
	}

	if o.runnable, err = o.buildGraph(ctx); err != nil {
		return nil, fmt.Errorf("failed to build pipeline graph: %w", err)
	}
	return o, nil
}

// Run 执行一次运行
// 未知模式在加锁、打开存储之前返回 ErrUnknownMode
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	rt, ok := routes[req.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("run date is required")
	}

	storeName := database.StoreName(req.Date, rt.testing)
	report := &RunReport{
		RunID:     uuid.NewString(),
		Mode:      req.Mode,
		Topic:     string(req.Topic),
		Store:     storeName,
		StartedAt: o.clock(),
	}

	unlock, err := o.locker.Acquire(ctx, storeName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[pipeline] Warning: %v", err)
		}
	}()

	db, err := o.opener.Open(ctx, storeName)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	log.Printf("[pipeline] run %s started: mode=%s topic=%q store=%s", report.RunID, req.Mode, req.Topic, storeName)

	state := &RunState{
		Request:  req,
		Report:   report,
		route:    rt,
		repos:    repository.NewRepositories(db.DB),
		excluded: make(map[uint]bool),
	}
	_, err = o.runnable.Invoke(ctx, state)
	report.FinishedAt = o.clock()
	if err != nil {
		return report, fmt.Errorf("run %s (%s) failed: %w", report.RunID, req.Mode, err)
	}

	log.Printf("[pipeline] run finished: %s", report)
	return report, nil
}

// now 当前时间（注入的时钟）
func (o *Orchestrator) now() time.Time {
	return o.clock()
}
