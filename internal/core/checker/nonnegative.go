// Package checker 实现流水线规则引擎。
package checker

import (
	"fmt"
	"sort"
	"strings"

	"alpha-pipeline-validator/internal/core/dataset"
	"alpha-pipeline-validator/internal/core/model"
	"alpha-pipeline-validator/internal/util/timefmt"
)

// maxDetailRows 每个时间桶在明细中展示的违例行数上限
// 违例计数始终为全量，只是明细展示截断。
const maxDetailRows = 5

// NonNegativeChecker 拆分目标非负校验
// 无状态全量扫描：拆分给交易员的目标量不允许为负（不做空 alpha）。
// 必须扫完整张表，保证违例计数精确，不允许提前退出。
type NonNegativeChecker struct {
	// tolerance 浮点比较的绝对容差
	tolerance float64
}

// NewNonNegativeChecker 创建非负校验器
func NewNonNegativeChecker(tolerance float64) *NonNegativeChecker {
	return &NonNegativeChecker{tolerance: tolerance}
}

// Name 校验器名称
func (c *NonNegativeChecker) Name() string {
	return "Non-Negative Split Alpha"
}

// Check 扫描全部拆分记录
func (c *NonNegativeChecker) Check(ds *dataset.Dataset) model.CheckResult {
	// 按时间桶收集违例记录
	byTime := make(map[model.TimeKey][]model.AlphaEvent)
	total := 0
	for _, ev := range ds.Split {
		if ev.TargetVolume < -c.tolerance {
			byTime[ev.Time] = append(byTime[ev.Time], ev)
			total++
		}
	}

	if total == 0 {
		timeSet := make(map[model.TimeKey]struct{})
		for _, ev := range ds.Split {
			timeSet[ev.Time] = struct{}{}
		}
		return model.CheckResult{
			CheckerName: c.Name(),
			Status:      model.StatusPass,
			Message: fmt.Sprintf("All %d split volumes are non-negative across %d time events",
				len(ds.Split), len(timeSet)),
		}
	}

	times := make([]model.TimeKey, 0, len(byTime))
	for t := range byTime {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	var lines []string
	for _, t := range times {
		evs := byTime[t]
		minVol := evs[0].TargetVolume
		for _, ev := range evs {
			if ev.TargetVolume < minVol {
				minVol = ev.TargetVolume
			}
		}
		lines = append(lines, fmt.Sprintf("time=%s: %d negative volumes (min=%.6f)",
			timefmt.Format(t), len(evs), minVol))

		shown := len(evs)
		if shown > maxDetailRows {
			shown = maxDetailRows
		}
		for _, ev := range evs[:shown] {
			lines = append(lines, fmt.Sprintf("    participant=%s, ticker=%s, volume=%.6f",
				ev.ParticipantID, ev.Ticker, ev.TargetVolume))
		}
		if len(evs) > maxDetailRows {
			lines = append(lines, fmt.Sprintf("    ... and %d more", len(evs)-maxDetailRows))
		}
	}

	return model.CheckResult{
		CheckerName: c.Name(),
		Status:      model.StatusFail,
		Message: fmt.Sprintf("Found %d negative split volumes across %d time events",
			total, len(byTime)),
		Details: strings.Join(lines, "\n"),
	}
}
