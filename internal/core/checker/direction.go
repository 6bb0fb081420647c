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

// 方向违例类型
const (
	// violationBuyDecreased 买入意图但仓位下降
	violationBuyDecreased = "BUY_DECREASED"
	// violationSellIncreased 卖出意图但仓位上升
	violationSellIncreased = "SELL_INCREASED"
)

// DirectionChecker 交易方向一致性校验
// 对相邻时间桶 (t, t+1)，按 (participant, ticker) 比较目标隐含的交易方向
// 与实际仓位变化方向：买入意图下仓位不得下降，卖出意图下不得上升。
// 该校验纯粹成对局部，不需要全天回溯；PrevClose 不是可交易事件，排除在外。
type DirectionChecker struct {
	// tolerance 浮点比较的绝对容差
	tolerance float64
}

// NewDirectionChecker 创建方向一致性校验器
func NewDirectionChecker(tolerance float64) *DirectionChecker {
	return &DirectionChecker{tolerance: tolerance}
}

// Name 校验器名称
func (c *DirectionChecker) Name() string {
	return "Trade Direction Consistency"
}

// directionViolation 单条方向违例
type directionViolation struct {
	period        string
	participantID string
	ticker        string
	target        float64
	currentPos    float64
	nextPos       float64
	intendedTrade float64
	violationType string
}

// Check 遍历相邻时间桶对并检查方向一致性
func (c *DirectionChecker) Check(ds *dataset.Dataset) model.CheckResult {
	// 按时间桶预分组拆分目标，避免每对时间桶重复扫表
	splitsByTime := make(map[model.TimeKey][]model.AlphaEvent)
	for _, ev := range ds.Split {
		if !ev.Time.IsPrevClose() {
			splitsByTime[ev.Time] = append(splitsByTime[ev.Time], ev)
		}
	}

	times := ds.PositionTimes()

	var violations []directionViolation
	totalTrades := 0

	for i := 0; i+1 < len(times); i++ {
		cur, next := times[i], times[i+1]

		for _, ev := range splitsByTime[cur] {
			// 目标与两端仓位须同时存在才构成可评估的交易对
			curSnap, ok := ds.Position(cur, ev.ParticipantID, ev.Ticker)
			if !ok {
				continue
			}
			nextSnap, ok := ds.Position(next, ev.ParticipantID, ev.Ticker)
			if !ok {
				continue
			}

			totalTrades++

			intended := ev.TargetVolume - curSnap.CurrentPosition
			// 无交易意图则没有方向义务
			if intended > -c.tolerance && intended < c.tolerance {
				continue
			}

			if intended > 0 && nextSnap.CurrentPosition < curSnap.CurrentPosition-c.tolerance {
				violations = append(violations, directionViolation{
					period:        timefmt.FormatRange(cur, next),
					participantID: ev.ParticipantID,
					ticker:        ev.Ticker,
					target:        ev.TargetVolume,
					currentPos:    curSnap.CurrentPosition,
					nextPos:       nextSnap.CurrentPosition,
					intendedTrade: intended,
					violationType: violationBuyDecreased,
				})
			} else if intended < 0 && nextSnap.CurrentPosition > curSnap.CurrentPosition+c.tolerance {
				violations = append(violations, directionViolation{
					period:        timefmt.FormatRange(cur, next),
					participantID: ev.ParticipantID,
					ticker:        ev.Ticker,
					target:        ev.TargetVolume,
					currentPos:    curSnap.CurrentPosition,
					nextPos:       nextSnap.CurrentPosition,
					intendedTrade: intended,
					violationType: violationSellIncreased,
				})
			}
		}
	}

	if len(violations) == 0 {
		return model.CheckResult{
			CheckerName: c.Name(),
			Status:      model.StatusPass,
			Message: fmt.Sprintf(
				"All %d trades follow correct direction consistency (buy increases positions, sell decreases positions)",
				totalTrades),
		}
	}

	var buys, sells []directionViolation
	for _, v := range violations {
		if v.violationType == violationBuyDecreased {
			buys = append(buys, v)
		} else {
			sells = append(sells, v)
		}
	}

	var lines []string
	if len(buys) > 0 {
		lines = append(lines, fmt.Sprintf("BUY Direction Violations (%d):", len(buys)))
		lines = append(lines, formatDirectionGroup(buys, "intended buy %.0f, but position decreased")...)
	}
	if len(sells) > 0 {
		lines = append(lines, fmt.Sprintf("SELL Direction Violations (%d):", len(sells)))
		lines = append(lines, formatDirectionGroup(sells, "intended sell %.0f, but position increased")...)
	}

	return model.CheckResult{
		CheckerName: c.Name(),
		Status:      model.StatusFail,
		Message: fmt.Sprintf("Found %d direction consistency violations out of %d total trades",
			len(violations), totalTrades),
		Details: strings.Join(lines, "\n"),
	}
}

// formatDirectionGroup 按时间区间分组格式化违例明细
// 最多展示 3 个时间区间、每区间 2 条记录，避免明细刷屏。
func formatDirectionGroup(vs []directionViolation, reasonFmt string) []string {
	byPeriod := make(map[string][]directionViolation)
	for _, v := range vs {
		byPeriod[v.period] = append(byPeriod[v.period], v)
	}

	periods := make([]string, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Strings(periods)
	if len(periods) > 3 {
		periods = periods[:3]
	}

	var lines []string
	for _, p := range periods {
		pv := byPeriod[p]
		lines = append(lines, fmt.Sprintf("  %s: %d violations", p, len(pv)))
		shown := len(pv)
		if shown > 2 {
			shown = 2
		}
		for _, v := range pv[:shown] {
			lines = append(lines, fmt.Sprintf("    %s/%s: %.0f→%.0f (%s)",
				v.participantID, v.ticker, v.currentPos, v.nextPos,
				fmt.Sprintf(reasonFmt, v.intendedTrade)))
		}
	}
	return lines
}
