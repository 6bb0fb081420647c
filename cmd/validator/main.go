// Package main 是 alpha 信号流水线验证器的入口点。
// 本验证器对 PM→合并→拆分三级信号分发流水线的落盘事件表做一致性校验：
// 量守恒、拆分基数、非负、手数取整、方向一致性、T+1 可卖约束，
// 并在校验之外提供逐笔成交率分析。
//
// 校验针对单日批量数据离线执行，不接入实时事件流。
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"alpha-pipeline-validator/internal/config"
	"alpha-pipeline-validator/internal/core/checker"
	"alpha-pipeline-validator/internal/core/fillrate"
	"alpha-pipeline-validator/internal/core/model"
	"alpha-pipeline-validator/internal/input/csvload"
	"alpha-pipeline-validator/internal/output/jsonl"
	"alpha-pipeline-validator/internal/output/report"
	"alpha-pipeline-validator/internal/util/timefmt"
)

func main() {
	var configPath string
	var dataDir string
	var noColor bool
	flag.StringVar(&configPath, "config", "", "配置文件路径（缺省使用内置默认配置）")
	flag.StringVar(&dataDir, "data", "", "事件表数据目录（覆盖配置中的 input.dir）")
	flag.BoolVar(&noColor, "no-color", false, "关闭控制台颜色输出")
	flag.Parse()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
			os.Exit(2)
		}
	} else {
		cfg = config.Default()
	}

	if dataDir != "" {
		cfg.Input.Dir = dataDir
	}
	if cfg.Input.Dir == "" {
		fmt.Fprintln(os.Stderr, "数据目录未指定: 使用 -data 参数或配置 input.dir")
		os.Exit(2)
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	logger.Info("开始校验",
		zap.String("app", cfg.App.Name),
		zap.String("data_dir", cfg.Input.Dir))

	ds, err := csvload.NewLoader(cfg.Input, logger).Load()
	if err != nil {
		logger.Error("加载事件表失败", zap.Error(err))
		fmt.Fprintf(os.Stderr, "加载事件表失败: %v\n", err)
		os.Exit(2)
	}

	runner := checker.NewRunner(checker.DefaultRegistry(cfg.Check), logger)
	results := runner.Run(ds)

	engine := fillrate.NewEngine(ds, cfg.Check.Tolerance)
	analyses := runAnalyses(engine, cfg.Analysis)

	reporter := report.NewConsoleReporter(os.Stdout, !noColor)
	reporter.PrintResults(results)
	reporter.PrintAnalyses(analyses)

	if err := writeOutputs(cfg.Output, logger, results, analyses, engine); err != nil {
		logger.Error("写出结果文件失败", zap.Error(err))
		os.Exit(2)
	}

	for _, res := range results {
		if res.Status.IsCritical() {
			os.Exit(1)
		}
	}
}

// runAnalyses 按配置执行成交率分析视图
// 未配置任何视图时只执行全局视图，与 overview 开关无关。
func runAnalyses(engine *fillrate.Engine, cfg config.AnalysisConfig) []model.AnalysisResult {
	var views []fillrate.View
	if cfg.Overview {
		views = append(views, fillrate.Overview{})
	}
	for _, t := range cfg.ByTime {
		views = append(views, fillrate.ByTime{Time: timefmt.Key(t)})
	}
	for _, ticker := range cfg.ByTicker {
		views = append(views, fillrate.ByTicker{Ticker: ticker})
	}
	for _, req := range cfg.Deep {
		views = append(views, fillrate.Deep{Time: timefmt.Key(req.Time), Ticker: req.Ticker})
	}
	if len(views) == 0 {
		views = append(views, fillrate.Overview{})
	}

	analyses := make([]model.AnalysisResult, 0, len(views))
	for _, v := range views {
		analyses = append(analyses, engine.Analyze(v))
	}
	return analyses
}

// writeOutputs 按配置落盘校验结果与逐笔成交率明细
func writeOutputs(cfg config.OutputConfig, logger *zap.Logger, results []model.CheckResult, analyses []model.AnalysisResult, engine *fillrate.Engine) error {
	if cfg.ResultsEnabled {
		w, err := jsonl.NewWriter(filepath.Join(cfg.Dir, "results.jsonl"), cfg.BufferSize)
		if err != nil {
			return fmt.Errorf("创建 results writer 失败: %w", err)
		}
		for _, res := range results {
			if err := w.Write(res); err != nil {
				return err
			}
		}
		for _, a := range analyses {
			if err := w.Write(a); err != nil {
				return err
			}
		}
		if err := w.Close(); err != nil {
			return err
		}
		logger.Info("校验结果已落盘",
			zap.String("path", w.Path()),
			zap.Int64("records", w.Written()))
	}

	if cfg.FillTradesEnabled {
		w, err := jsonl.NewWriter(filepath.Join(cfg.Dir, "fill_trades.jsonl"), cfg.BufferSize)
		if err != nil {
			return fmt.Errorf("创建 fill_trades writer 失败: %w", err)
		}
		for _, t := range engine.Trades() {
			if err := w.Write(t); err != nil {
				return err
			}
		}
		if err := w.Close(); err != nil {
			return err
		}
		logger.Info("成交率明细已落盘",
			zap.String("path", w.Path()),
			zap.Int64("records", w.Written()))
	}

	return nil
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
