// Package model 定义校验器中使用的核心数据结构。
package model

// Status 校验结果状态
type Status string

const (
	// StatusPass 校验通过
	StatusPass Status = "PASS"
	// StatusFail 发现业务规则违例
	StatusFail Status = "FAIL"
	// StatusWarn 发现可报告但非致命的问题
	StatusWarn Status = "WARN"
	// StatusError 校验器自身执行失败
	StatusError Status = "ERROR"
)

// IsCritical 判断状态是否计入致命问题（FAIL 或 ERROR）
func (s Status) IsCritical() bool {
	return s == StatusFail || s == StatusError
}

// CheckResult 单个校验器的运行结果
type CheckResult struct {
	// CheckerName 校验器名称
	CheckerName string `json:"checker_name"`
	// Status 结果状态: PASS, FAIL, WARN, ERROR
	Status Status `json:"status"`
	// Message 单行摘要
	Message string `json:"message"`
	// Details 多行诊断明细（可选）
	Details string `json:"details,omitempty"`
}

// AnalysisResult 单个分析视图的运行结果
type AnalysisResult struct {
	// AnalyzerName 分析器名称
	AnalyzerName string `json:"analyzer_name"`
	// Summary 单行摘要
	Summary string `json:"summary"`
	// PlotRef 图表引用（由外部报告层填充，可选）
	PlotRef string `json:"plot_ref,omitempty"`
	// Details 多行明细（可选）
	Details string `json:"details,omitempty"`
}
