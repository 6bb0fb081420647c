// Package checker 实现流水线规则引擎。
package checker

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"alpha-pipeline-validator/internal/core/dataset"
	"alpha-pipeline-validator/internal/core/model"
	"alpha-pipeline-validator/internal/util/timefmt"
)

// RoundingChecker 交易量取整校验
// 交易量 = 拆分目标 − 实时仓位，必须为手数单位（默认 100 股）的整数倍。
// 仓位快照缺失按 0 仓位处理。无状态全量扫描，计数精确。
type RoundingChecker struct {
	// lotSize 手数单位（股）
	lotSize float64
	// tolerance 浮点比较的绝对容差
	tolerance float64
}

// NewRoundingChecker 创建交易量取整校验器
func NewRoundingChecker(lotSize, tolerance float64) *RoundingChecker {
	return &RoundingChecker{lotSize: lotSize, tolerance: tolerance}
}

// Name 校验器名称
func (c *RoundingChecker) Name() string {
	return fmt.Sprintf("Volume Rounding (%g shares)", c.lotSize)
}

// roundingViolation 单条取整违例
type roundingViolation struct {
	ev        model.AlphaEvent
	pos       float64
	trade     float64
	remainder float64
}

// Check 扫描全部拆分记录并与仓位快照联立
func (c *RoundingChecker) Check(ds *dataset.Dataset) model.CheckResult {
	byTime := make(map[model.TimeKey][]roundingViolation)
	total := 0

	for _, ev := range ds.Split {
		pos := 0.0
		if snap, ok := ds.Position(ev.Time, ev.ParticipantID, ev.Ticker); ok {
			pos = snap.CurrentPosition
		}

		trade := ev.TargetVolume - pos
		// 余数折算到 [0, lot) 后与两端比较：
		// 贴近 0 或贴近 lot 都视为整手
		r := math.Abs(math.Mod(trade, c.lotSize))
		if r > c.tolerance && c.lotSize-r > c.tolerance {
			byTime[ev.Time] = append(byTime[ev.Time], roundingViolation{
				ev:        ev,
				pos:       pos,
				trade:     trade,
				remainder: r,
			})
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
			Message: fmt.Sprintf("All %d trade volumes are properly rounded to %g shares across %d time events",
				len(ds.Split), c.lotSize, len(timeSet)),
		}
	}

	times := make([]model.TimeKey, 0, len(byTime))
	for t := range byTime {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	var lines []string
	for _, t := range times {
		vs := byTime[t]
		lines = append(lines, fmt.Sprintf("time=%s: %d unrounded volumes", timefmt.Format(t), len(vs)))

		shown := len(vs)
		if shown > maxDetailRows {
			shown = maxDetailRows
		}
		for _, v := range vs[:shown] {
			lines = append(lines, fmt.Sprintf(
				"    participant=%s, ticker=%s: target=%.1f, pos=%.1f, volume=%.1f (remainder=%.1f)",
				v.ev.ParticipantID, v.ev.Ticker, v.ev.TargetVolume, v.pos, v.trade, v.remainder))
		}
		if len(vs) > maxDetailRows {
			lines = append(lines, fmt.Sprintf("    ... and %d more", len(vs)-maxDetailRows))
		}
	}

	return model.CheckResult{
		CheckerName: c.Name(),
		Status:      model.StatusFail,
		Message: fmt.Sprintf("Found %d trade volumes not rounded to %g shares across %d time events",
			total, c.lotSize, len(byTime)),
		Details: strings.Join(lines, "\n"),
	}
}
