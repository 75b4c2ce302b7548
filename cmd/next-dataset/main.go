package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashwinyue/next-dataset/internal/config"
	"github.com/ashwinyue/next-dataset/internal/database"
	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/service/callback"
	"github.com/ashwinyue/next-dataset/internal/service/export"
	"github.com/ashwinyue/next-dataset/internal/service/file"
	"github.com/ashwinyue/next-dataset/internal/service/llm"
	"github.com/ashwinyue/next-dataset/internal/service/lock"
	"github.com/ashwinyue/next-dataset/internal/service/metrics"
	"github.com/ashwinyue/next-dataset/internal/service/pipeline"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"
)

const dateLayout = "2006-01-02"

func main() {
	app := &cli.Command{
		Name:  "next-dataset",
		Usage: "Synthetic instruction-tuning dataset generator",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "./configs/config.yaml",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
		},
		Commands: []*cli.Command{
			runCmd(),
			modesCmd(),
			topicsCmd(),
		},
	}

	// 中断信号取消所有图和模型调用
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		// 未知模式与其他失败区分开
		if errors.Is(err, pipeline.ErrUnknownMode) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one pipeline mode",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Run mode (see 'modes')", Required: true},
			&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Usage: "Restrict to one topic (see 'topics')"},
			&cli.StringFlag{Name: "date", Usage: "Run date YYYY-MM-DD, selects the dated store (default: today)"},
			&cli.BoolFlag{Name: "json", Usage: "Print the run report as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mode, err := pipeline.ParseMode(cmd.String("mode"))
			if err != nil {
				return err
			}
			var topic model.Topic
			if s := cmd.String("topic"); s != "" {
				if topic, err = model.ParseTopic(s); err != nil {
					return err
				}
			}
			date := time.Now()
			if s := cmd.String("date"); s != "" {
				if date, err = time.ParseInLocation(dateLayout, s, time.Local); err != nil {
					return fmt.Errorf("invalid --date %q: %w", s, err)
				}
			}

			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			report, err := run(ctx, cfg, pipeline.RunRequest{Mode: mode, Topic: topic, Date: date})
			if report != nil {
				printReport(report, cmd.Bool("json"))
			}
			return err
		},
	}
}

// run 组装依赖并执行一次运行
func run(ctx context.Context, cfg *config.Config, req pipeline.RunRequest) (*pipeline.RunReport, error) {
	callback.SetupGlobalCallbacks(cfg.App.Debug)
	rec := metrics.NewRecorder()
	defer func() {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Printf("Warning: %v", err)
		}
	}()

	gen, err := llm.NewGeneratorFromConfig(ctx, cfg, llm.WithMetrics(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to init generator: %w", err)
	}

	local, err := file.NewLocalStorage(cfg.Export.Dir, "")
	if err != nil {
		return nil, err
	}
	mirror, err := file.NewMirror(ctx, &cfg.Export)
	if err != nil {
		return nil, fmt.Errorf("failed to init export mirror: %w", err)
	}
	exporter := export.NewExporter(local, mirror, export.Options{
		Normalize: cfg.Export.Normalize,
		Summarize: cfg.Export.Summary,
	})

	var locker lock.Locker = lock.NopLocker{}
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, time.Duration(cfg.Redis.LockTTL)*time.Second)
	}

	orch, err := pipeline.New(ctx, pipeline.Deps{
		Config:    cfg,
		Generator: gen,
		Opener:    database.NewOpener(cfg),
		Exporter:  exporter,
		Locker:    locker,
		Metrics:   rec,
	})
	if err != nil {
		return nil, err
	}
	return orch.Run(ctx, req)
}

func printReport(report *pipeline.RunReport, asJSON bool) {
	if !asJSON {
		fmt.Println(report.String())
		for _, f := range report.Failures {
			fmt.Printf("  failed %s subtopic=%d qa=%d: %s\n", f.Stage, f.SubtopicID, f.QAID, f.Error)
		}
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Printf("Warning: failed to encode report: %v", err)
	}
}

func modesCmd() *cli.Command {
	return &cli.Command{
		Name:  "modes",
		Usage: "List run modes",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			for _, m := range pipeline.AllModes() {
				fmt.Println(m)
			}
			return nil
		},
	}
}

func topicsCmd() *cli.Command {
	return &cli.Command{
		Name:  "topics",
		Usage: "List topics",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			for _, t := range model.AllTopics() {
				fmt.Printf("%-22s %s\n", t.Slug(), t)
			}
			return nil
		},
	}
}
