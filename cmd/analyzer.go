package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"bili-radar/internal/config"
	"bili-radar/internal/pipeline"
)

func main() {
	var (
		mode       = flag.String("mode", "full", "运行模式: collect / analyze / visualize / full / serve")
		configPath = flag.String("config", "", "配置文件路径，缺省依次取 CONFIG_FILE 与 config.yaml")
		outputDir  = flag.String("output-dir", "", "覆盖输出目录")
		force      = flag.Bool("force-recollect", false, "忽略已有增强数据缓存，重新采集")
		dryRun     = flag.Bool("dry-run", false, "只打印执行计划，不发请求不写数据")
		verbose    = flag.Bool("verbose", false, "输出调试日志")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyOutputDir(*outputDir)

	if err := cfg.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "prepare directories: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Storage.LogsDir, *verbose)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	p := pipeline.New(cfg, logger)

	if *dryRun {
		if err := p.DryRun(); err != nil {
			logger.WithError(err).Error("dry run failed")
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, p, *mode, *force); err != nil {
		logger.WithError(err).Errorf("mode %q failed", *mode)
		os.Exit(1)
	}
}

func run(ctx context.Context, p *pipeline.Pipeline, mode string, force bool) error {
	switch mode {
	case "collect":
		return p.Collect(ctx, force)
	case "analyze":
		return p.Analyze(ctx)
	case "visualize":
		return p.Visualize()
	case "full":
		return p.Full(ctx, force)
	case "serve":
		return p.Serve(ctx)
	default:
		return fmt.Errorf("unknown mode %q (want collect / analyze / visualize / full / serve)", mode)
	}
}

// newLogger 同时写终端与日志文件，文件打不开时退回纯终端输出。
func newLogger(logsDir string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	path := filepath.Join(logsDir, "bili-radar.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.WithError(err).Warnf("log file %s unavailable, logging to stdout only", path)
		return logger
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, f))
	return logger
}
