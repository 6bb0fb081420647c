// Package report 实现校验与分析结果的控制台报告。
// 输出格式与生产诊断报告保持一致：统计摘要、逐项结果、最终结论。
package report

import (
	"fmt"
	"io"
	"strings"

	"alpha-pipeline-validator/internal/core/model"
)

// ANSI 颜色码
const (
	colorGreen  = "\033[92m"
	colorRed    = "\033[91m"
	colorYellow = "\033[93m"
	colorReset  = "\033[0m"
)

// ConsoleReporter 控制台报告器
type ConsoleReporter struct {
	// w 输出目标
	w io.Writer
	// colored 是否输出 ANSI 颜色
	colored bool
}

// NewConsoleReporter 创建控制台报告器
// 参数 w: 输出目标
// 参数 colored: 是否输出 ANSI 颜色（重定向到文件时应关闭）
func NewConsoleReporter(w io.Writer, colored bool) *ConsoleReporter {
	return &ConsoleReporter{w: w, colored: colored}
}

// PrintResults 输出全部校验结果
func (r *ConsoleReporter) PrintResults(results []model.CheckResult) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, strings.Repeat("=", 60))
	fmt.Fprintln(r.w, "ALPHA PIPELINE VALIDATION RESULTS")
	fmt.Fprintln(r.w, strings.Repeat("=", 60))

	var passed, failed, warned, errored int
	for _, res := range results {
		switch res.Status {
		case model.StatusPass:
			passed++
		case model.StatusFail:
			failed++
		case model.StatusWarn:
			warned++
		case model.StatusError:
			errored++
		}
	}

	fmt.Fprintf(r.w, "Total Checks: %d\n", len(results))
	fmt.Fprintf(r.w, "Passed: %s\n", r.colorize(model.StatusPass, fmt.Sprint(passed)))
	fmt.Fprintf(r.w, "Failed: %s\n", r.colorize(model.StatusFail, fmt.Sprint(failed)))
	fmt.Fprintf(r.w, "Warnings: %s\n", r.colorize(model.StatusWarn, fmt.Sprint(warned)))
	fmt.Fprintf(r.w, "Errors: %s\n", r.colorize(model.StatusError, fmt.Sprint(errored)))
	fmt.Fprintln(r.w)

	for _, res := range results {
		fmt.Fprintf(r.w, "[%s] %s\n", r.colorize(res.Status, string(res.Status)), res.CheckerName)
		fmt.Fprintf(r.w, "    %s\n", res.Message)
		if res.Details != "" {
			fmt.Fprintln(r.w, "    Details:")
			for _, line := range strings.Split(res.Details, "\n") {
				if strings.TrimSpace(line) == "" {
					continue
				}
				fmt.Fprintf(r.w, "      %s\n", line)
			}
		}
		fmt.Fprintln(r.w)
	}

	switch {
	case failed+errored > 0:
		fmt.Fprintln(r.w, r.colorize(model.StatusFail,
			fmt.Sprintf("VALIDATION FAILED - %d critical issues", failed+errored)))
	case warned > 0:
		fmt.Fprintln(r.w, r.colorize(model.StatusWarn,
			fmt.Sprintf("VALIDATION COMPLETED WITH WARNINGS - %d warnings", warned)))
	default:
		fmt.Fprintln(r.w, r.colorize(model.StatusPass, "ALL CHECKS PASSED"))
	}
	fmt.Fprintln(r.w)
}

// PrintAnalyses 输出全部成交率分析结果
func (r *ConsoleReporter) PrintAnalyses(analyses []model.AnalysisResult) {
	if len(analyses) == 0 {
		return
	}

	fmt.Fprintln(r.w, strings.Repeat("=", 60))
	fmt.Fprintln(r.w, "FILL RATE ANALYSIS")
	fmt.Fprintln(r.w, strings.Repeat("=", 60))

	for _, a := range analyses {
		fmt.Fprintf(r.w, "%s\n", a.AnalyzerName)
		fmt.Fprintf(r.w, "    %s\n", a.Summary)
		if a.Details != "" {
			for _, line := range strings.Split(a.Details, "\n") {
				if strings.TrimSpace(line) == "" {
					continue
				}
				fmt.Fprintf(r.w, "      %s\n", line)
			}
		}
		fmt.Fprintln(r.w)
	}
}

// colorize 按状态着色
func (r *ConsoleReporter) colorize(s model.Status, text string) string {
	if !r.colored {
		return text
	}
	var color string
	switch s {
	case model.StatusPass:
		color = colorGreen
	case model.StatusWarn:
		color = colorYellow
	case model.StatusFail, model.StatusError:
		color = colorRed
	default:
		return text
	}
	return color + text + colorReset
}
