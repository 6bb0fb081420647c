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

// SettlementChecker T+1 可卖约束校验
// 规则：参与者当日卖出量不得超过其已结算（T+1 可卖）数量；
// 当日买入的仓位要到下一交易日才可卖出。
//
// 支持两种互为替代的计算策略，按上游提供的数据自动选择：
//   - 台账策略: 提供 PM 虚拟仓位表时，按标的维护 settled/unsettled 台账，
//     以昨收虚拟仓位为初值沿时间轴推进；
//   - 可卖量策略: 仓位快照携带预计算可卖量时，直接对照跨交易员可卖量合计。
//
// 两者都不可用时返回 ERROR（配置缺陷，不允许静默跳过）。
type SettlementChecker struct {
	// tolerance 浮点比较的绝对容差
	tolerance float64
}

// NewSettlementChecker 创建 T+1 校验器
func NewSettlementChecker(tolerance float64) *SettlementChecker {
	return &SettlementChecker{tolerance: tolerance}
}

// Name 校验器名称
func (c *SettlementChecker) Name() string {
	return "PM T+1 Sellable Constraint"
}

// settlementViolation 单条 T+1 违例
type settlementViolation struct {
	time          model.TimeKey
	ticker        string
	target        float64
	currentBefore float64
	requiredSell  float64
	available     float64
	excess        float64
}

// Check 选择策略并执行 T+1 校验
func (c *SettlementChecker) Check(ds *dataset.Dataset) model.CheckResult {
	switch {
	case ds.HasPMVirtualPos():
		return c.checkLedger(ds)
	case ds.HasAvailSellVolume():
		return c.checkAvailVolume(ds)
	default:
		return model.CheckResult{
			CheckerName: c.Name(),
			Status:      model.StatusError,
			Message:     "T+1 check requires either PM virtual position data or avail sellable volume in position snapshots; neither was provided",
		}
	}
}

// checkLedger 台账策略
// 每个标的独立维护虚拟持仓台账：settled 取昨收虚拟仓位（缺失按 0），
// current 初始化为 settled。按时间升序逐桶推进：
// 卖出须满足 requiredSell ≤ settled − unsettled（当日买入预占可卖额度），
// 成功卖出后扣减 settled；买入只累加 unsettled，当日不产生可卖量。
// 每桶结束后以目标位作为达成仓位（current = target）。
func (c *SettlementChecker) checkLedger(ds *dataset.Dataset) model.CheckResult {
	// 标的全集：合并表 ∪ 虚拟仓位表
	tickerSet := make(map[string]struct{})
	for _, tk := range ds.MergedTickers() {
		tickerSet[tk] = struct{}{}
	}
	for _, vp := range ds.PMVirtualPos {
		tickerSet[vp.Ticker] = struct{}{}
	}
	tickers := make([]string, 0, len(tickerSet))
	for tk := range tickerSet {
		tickers = append(tickers, tk)
	}
	sort.Strings(tickers)

	var violations []settlementViolation
	checked := 0

	for _, ticker := range tickers {
		ledger := model.VirtualPosition{Ticker: ticker}
		if v, ok := ds.PMVirtualPrevClose(ticker); ok {
			ledger.Settled = v
		}
		current := ledger.Settled

		for _, ev := range ds.MergedTimeline(ticker) {
			checked++
			trade := ev.TargetVolume - current

			if trade < -c.tolerance {
				// 卖出：对照台账的真实可卖量
				requiredSell := -trade
				available := ledger.Settled - ledger.Unsettled
				if available < 0 {
					available = 0
				}
				if requiredSell > available+c.tolerance {
					violations = append(violations, settlementViolation{
						time:          ev.Time,
						ticker:        ticker,
						target:        ev.TargetVolume,
						currentBefore: current,
						requiredSell:  requiredSell,
						available:     available,
						excess:        requiredSell - available,
					})
				} else {
					ledger.Settled -= requiredSell
				}
			} else if trade > c.tolerance {
				// 买入：当日不结算，只进 unsettled
				ledger.Unsettled += trade
			}

			// 目标位视为该桶达成的仓位
			current = ev.TargetVolume
		}
	}

	return c.buildResult(violations, checked, "ledger tracking")
}

// checkAvailVolume 可卖量策略
// 上游已按 T+1 规则算好可卖量时不再自建台账：
// 对每个盘中 (time, ticker) 合并目标，卖出需求须不超过该桶
// 跨交易员可卖量合计。两种策略互为替代而非互补。
func (c *SettlementChecker) checkAvailVolume(ds *dataset.Dataset) model.CheckResult {
	mergedSums := ds.MergedSums()

	var violations []settlementViolation
	checked := 0

	for _, key := range sortedGroupKeys(mergedSums) {
		if key.Time.IsPrevClose() {
			continue
		}
		checked++

		current := ds.PositionSum(key.Time, key.Ticker)
		trade := mergedSums[key] - current
		if trade >= -c.tolerance {
			continue
		}

		requiredSell := -trade
		available := ds.AvailSellSum(key.Time, key.Ticker)
		if requiredSell > available+c.tolerance {
			violations = append(violations, settlementViolation{
				time:          key.Time,
				ticker:        key.Ticker,
				target:        mergedSums[key],
				currentBefore: current,
				requiredSell:  requiredSell,
				available:     available,
				excess:        requiredSell - available,
			})
		}
	}

	return c.buildResult(violations, checked, "avail-sell-volume")
}

// buildResult 汇总违例并生成结果
// 明细按时间桶分组，每桶最多展示 5 条，总超额卖出量计入摘要。
func (c *SettlementChecker) buildResult(violations []settlementViolation, checked int, strategy string) model.CheckResult {
	if len(violations) == 0 {
		return model.CheckResult{
			CheckerName: c.Name(),
			Status:      model.StatusPass,
			Message: fmt.Sprintf("All %d PM alpha targets respect T+1 sellable constraints (%s)",
				checked, strategy),
		}
	}

	totalExcess := 0.0
	byTime := make(map[model.TimeKey][]settlementViolation)
	for _, v := range violations {
		totalExcess += v.excess
		byTime[v.time] = append(byTime[v.time], v)
	}

	times := make([]model.TimeKey, 0, len(byTime))
	for t := range byTime {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	lines := []string{fmt.Sprintf("Found %d T+1 constraint violations (%s):", len(violations), strategy)}
	for _, t := range times {
		vs := byTime[t]
		lines = append(lines, fmt.Sprintf("  time=%s: %d violations", timefmt.Format(t), len(vs)))

		shown := len(vs)
		if shown > maxDetailRows {
			shown = maxDetailRows
		}
		for _, v := range vs[:shown] {
			lines = append(lines, fmt.Sprintf(
				"    %s: target=%.0f, pos_before=%.0f, need_sell=%.0f, available=%.0f, excess=%.0f",
				v.ticker, v.target, v.currentBefore, v.requiredSell, v.available, v.excess))
		}
		if len(vs) > maxDetailRows {
			lines = append(lines, fmt.Sprintf("    ... and %d more violations", len(vs)-maxDetailRows))
		}
	}

	return model.CheckResult{
		CheckerName: c.Name(),
		Status:      model.StatusFail,
		Message: fmt.Sprintf("Found %d T+1 constraint violations (total excess: %.0f)",
			len(violations), totalExcess),
		Details: strings.Join(lines, "\n"),
	}
}
