// Package config 负责加载和验证 YAML 配置文件。
// 提供应用程序所需的所有配置项，包括输入表文件名、校验参数、分析视图、输出设置等。
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 应用配置根结构
// 包含所有子模块的配置项
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Input 输入数据配置
	Input InputConfig `yaml:"input"`
	// Check 校验参数配置
	Check CheckConfig `yaml:"check"`
	// Analysis 成交率分析视图配置
	Analysis AnalysisConfig `yaml:"analysis"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// InputConfig 输入数据配置
// Dir 可被命令行参数覆盖；各文件名用于匹配生产数据目录中的表文件。
type InputConfig struct {
	// Dir 数据目录
	Dir string `yaml:"dir"`
	// PMFile PM 信号表文件名（必需）
	PMFile string `yaml:"pm_file"`
	// MergedFile 合并信号表文件名（缺失时以 PM 表代替）
	MergedFile string `yaml:"merged_file"`
	// SplitFile 拆分信号表文件名（必需）
	SplitFile string `yaml:"split_file"`
	// PositionFile 仓位快照表文件名（必需）
	PositionFile string `yaml:"position_file"`
	// MarketFile 行情快照表文件名（可选）
	MarketFile string `yaml:"market_file"`
	// PMVirtualPosFile PM 虚拟仓位表文件名（可选，T+1 备选数据源）
	PMVirtualPosFile string `yaml:"pm_virtual_pos_file"`
}

// CheckConfig 校验参数配置
type CheckConfig struct {
	// Tolerance 浮点比较的绝对容差
	// 所有量的相等/不等比较都必须使用该容差，禁止精确相等。
	Tolerance float64 `yaml:"tolerance"`
	// LotSize 交易手数单位（股），交易量须为其整数倍
	LotSize float64 `yaml:"lot_size"`
	// TradersPerGroup 每个 (time, ticker) 组应拆分到的交易员数量
	TradersPerGroup int `yaml:"traders_per_group"`
}

// AnalysisConfig 成交率分析视图配置
// 每个字段对应一种视图请求；全部为空时仅运行 overview。
type AnalysisConfig struct {
	// Overview 是否运行全局视图
	Overview bool `yaml:"overview"`
	// ByTime 按到达时间分析的时间键列表
	ByTime []int64 `yaml:"by_time"`
	// ByTicker 按标的分析的标的列表
	ByTicker []string `yaml:"by_ticker"`
	// Deep 深度分析的 (time, ticker) 组合列表
	Deep []DeepRequest `yaml:"deep"`
}

// DeepRequest 深度分析请求
type DeepRequest struct {
	// Time 到达时间键
	Time int64 `yaml:"time"`
	// Ticker 标的代码
	Ticker string `yaml:"ticker"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// ResultsEnabled 是否输出校验结果 JSONL 文件
	ResultsEnabled bool `yaml:"results_enabled"`
	// FillTradesEnabled 是否输出逐笔成交率 JSONL 文件
	FillTradesEnabled bool `yaml:"fill_trades_enabled"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	// 读取配置文件
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析 YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 设置默认值
	cfg.setDefaults()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// Default 返回填充默认值的配置
// 供未提供配置文件的场景使用（全部参数走默认值）。
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	// 应用默认值
	if c.App.Name == "" {
		c.App.Name = "alpha-pipeline-validator"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	// 输入表文件名默认值（与生产事件表名一致）
	if c.Input.PMFile == "" {
		c.Input.PMFile = "InCheckAlphaEv.csv"
	}
	if c.Input.MergedFile == "" {
		c.Input.MergedFile = "MergedAlphaEv.csv"
	}
	if c.Input.SplitFile == "" {
		c.Input.SplitFile = "SplitAlphaEv.csv"
	}
	if c.Input.PositionFile == "" {
		c.Input.PositionFile = "SplitCtxEv.csv"
	}
	if c.Input.MarketFile == "" {
		c.Input.MarketFile = "MarketDataEv.csv"
	}
	if c.Input.PMVirtualPosFile == "" {
		c.Input.PMVirtualPosFile = "PmVirtualPosEv.csv"
	}

	// 校验参数默认值
	if c.Check.Tolerance == 0 {
		c.Check.Tolerance = 1e-6
	}
	if c.Check.LotSize == 0 {
		c.Check.LotSize = 100
	}
	if c.Check.TradersPerGroup == 0 {
		c.Check.TradersPerGroup = 2
	}

	// 输出默认值
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	// 验证校验参数
	if c.Check.Tolerance <= 0 {
		errs = append(errs, "check.tolerance: 容差必须为正数")
	}
	if c.Check.Tolerance >= 1 {
		errs = append(errs, fmt.Sprintf("check.tolerance: 容差过大，当前值: %g", c.Check.Tolerance))
	}
	if c.Check.LotSize <= 0 {
		errs = append(errs, "check.lot_size: 手数单位必须为正数")
	}
	if c.Check.TradersPerGroup < 1 {
		errs = append(errs, "check.traders_per_group: 每组交易员数量必须至少为 1")
	}

	// 验证输入表文件名
	if c.Input.PMFile == "" {
		errs = append(errs, "input.pm_file: PM 信号表文件名不能为空")
	}
	if c.Input.SplitFile == "" {
		errs = append(errs, "input.split_file: 拆分信号表文件名不能为空")
	}
	if c.Input.PositionFile == "" {
		errs = append(errs, "input.position_file: 仓位快照表文件名不能为空")
	}

	// 验证分析视图请求
	for i, t := range c.Analysis.ByTime {
		if t <= 0 {
			errs = append(errs, fmt.Sprintf("analysis.by_time[%d]: 时间键必须为正盘中时间，当前值: %d", i, t))
		}
	}
	for i, ticker := range c.Analysis.ByTicker {
		if ticker == "" {
			errs = append(errs, fmt.Sprintf("analysis.by_ticker[%d]: 标的代码不能为空", i))
		}
	}
	for i, req := range c.Analysis.Deep {
		if req.Time <= 0 {
			errs = append(errs, fmt.Sprintf("analysis.deep[%d].time: 时间键必须为正盘中时间，当前值: %d", i, req.Time))
		}
		if req.Ticker == "" {
			errs = append(errs, fmt.Sprintf("analysis.deep[%d].ticker: 标的代码不能为空", i))
		}
	}

	// 验证输出配置
	if c.Output.BufferSize < 0 {
		errs = append(errs, "output.buffer_size: 缓冲区大小不能为负数")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
