// Package fillrate 实现成交率分析引擎。
// 逐笔成交率表在构建时一次算好，之后各分析视图只做筛选和聚合，
// 与校验器共享同一份只读数据快照。
package fillrate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"alpha-pipeline-validator/internal/core/dataset"
	"alpha-pipeline-validator/internal/core/model"
	"alpha-pipeline-validator/internal/util/timefmt"
)

// Trade 单笔成交率记录
// 由相邻时间桶 (TimeFrom, TimeTo) 的拆分目标与仓位快照联立得出。
type Trade struct {
	// TimeFrom 目标下达的时间桶
	TimeFrom model.TimeKey `json:"time_from"`
	// TimeTo 结果观测（到达）的时间桶
	TimeTo model.TimeKey `json:"time_to"`
	// ParticipantID 交易员标识
	ParticipantID string `json:"participant_id"`
	// Ticker 标的代码
	Ticker string `json:"ticker"`
	// Target 拆分目标量
	Target float64 `json:"target"`
	// PosBefore 下达时仓位
	PosBefore float64 `json:"pos_before"`
	// PosAfter 到达时仓位
	PosAfter float64 `json:"pos_after"`
	// IntendedTrade 意图交易量 = Target − PosBefore
	IntendedTrade float64 `json:"intended_trade"`
	// ActualTrade 实际交易量 = PosAfter − PosBefore
	ActualTrade float64 `json:"actual_trade"`
	// FillRate 成交率 = ActualTrade / IntendedTrade；意图为零时恒为 0
	FillRate float64 `json:"fill_rate"`
	// Analyzable 是否计入聚合统计（意图交易量超出容差才可分析）
	Analyzable bool `json:"analyzable"`
}

// View 分析视图请求
// 密封接口：四种视图由本包内的请求类型枚举，不接受外部实现。
type View interface {
	viewName() string
}

// Overview 全局视图：全部成交记录
type Overview struct{}

func (Overview) viewName() string { return "Fill Rate Overview" }

// ByTime 按到达时间筛选的视图
type ByTime struct {
	// Time 到达时间桶
	Time model.TimeKey
}

func (v ByTime) viewName() string {
	return fmt.Sprintf("Fill Rate by Time (%s)", timefmt.Format(v.Time))
}

// ByTicker 按标的筛选的视图
type ByTicker struct {
	// Ticker 标的代码
	Ticker string
}

func (v ByTicker) viewName() string {
	return fmt.Sprintf("Fill Rate by Ticker (%s)", v.Ticker)
}

// Deep 按 (到达时间, 标的) 的深度视图
// 在筛选之外额外给出逐交易员明细与净成交率。
type Deep struct {
	// Time 到达时间桶
	Time model.TimeKey
	// Ticker 标的代码
	Ticker string
}

func (v Deep) viewName() string {
	return fmt.Sprintf("Deep Fill Analysis (%s, %s)", timefmt.Format(v.Time), v.Ticker)
}

// Engine 成交率分析引擎
// 构建后只读，可被多个视图复用。
type Engine struct {
	// tolerance 浮点比较的绝对容差
	tolerance float64
	// trades 逐笔成交率表（构建时一次算好）
	trades []Trade
}

// NewEngine 构建成交率引擎并计算逐笔成交率表
// 时间轴取拆分表的盘中时间轴；每笔记录要求 (TimeFrom, TimeTo) 两端
// 仓位快照齐备，缺任一端的组合不构成可观测交易，直接跳过。
func NewEngine(ds *dataset.Dataset, tolerance float64) *Engine {
	e := &Engine{tolerance: tolerance}

	splitsByTime := make(map[model.TimeKey][]model.AlphaEvent)
	for _, ev := range ds.Split {
		if !ev.Time.IsPrevClose() {
			splitsByTime[ev.Time] = append(splitsByTime[ev.Time], ev)
		}
	}

	times := ds.SplitTimes()
	for i := 0; i+1 < len(times); i++ {
		cur, next := times[i], times[i+1]

		evs := splitsByTime[cur]
		sort.Slice(evs, func(a, b int) bool {
			if evs[a].Ticker != evs[b].Ticker {
				return evs[a].Ticker < evs[b].Ticker
			}
			return evs[a].ParticipantID < evs[b].ParticipantID
		})

		for _, ev := range evs {
			before, ok := ds.Position(cur, ev.ParticipantID, ev.Ticker)
			if !ok {
				continue
			}
			after, ok := ds.Position(next, ev.ParticipantID, ev.Ticker)
			if !ok {
				continue
			}

			t := Trade{
				TimeFrom:      cur,
				TimeTo:        next,
				ParticipantID: ev.ParticipantID,
				Ticker:        ev.Ticker,
				Target:        ev.TargetVolume,
				PosBefore:     before.CurrentPosition,
				PosAfter:      after.CurrentPosition,
			}
			t.IntendedTrade = t.Target - t.PosBefore
			t.ActualTrade = t.PosAfter - t.PosBefore

			if t.IntendedTrade > e.tolerance || t.IntendedTrade < -e.tolerance {
				t.FillRate = t.ActualTrade / t.IntendedTrade
				t.Analyzable = true
			}
			e.trades = append(e.trades, t)
		}
	}

	return e
}

// Trades 返回逐笔成交率表
// 返回的切片应视为只读。
func (e *Engine) Trades() []Trade {
	return e.trades
}

// Analyze 执行一个分析视图
// 视图只筛选不重算，同一引擎可依次执行任意多个视图。
func (e *Engine) Analyze(v View) model.AnalysisResult {
	var selected []Trade
	switch req := v.(type) {
	case Overview:
		selected = e.trades
	case ByTime:
		for _, t := range e.trades {
			if t.TimeTo == req.Time {
				selected = append(selected, t)
			}
		}
	case ByTicker:
		for _, t := range e.trades {
			if t.Ticker == req.Ticker {
				selected = append(selected, t)
			}
		}
	case Deep:
		for _, t := range e.trades {
			if t.TimeTo == req.Time && t.Ticker == req.Ticker {
				selected = append(selected, t)
			}
		}
	}

	if len(selected) == 0 {
		return model.AnalysisResult{
			AnalyzerName: v.viewName(),
			Summary:      "No trades matched this view",
		}
	}

	var rates []float64
	for _, t := range selected {
		if t.Analyzable {
			rates = append(rates, t.FillRate)
		}
	}

	result := model.AnalysisResult{AnalyzerName: v.viewName()}

	if len(rates) == 0 {
		result.Summary = fmt.Sprintf("Analyzed %d trades, none with non-zero intended volume", len(selected))
		return result
	}

	mean, _ := stats.Mean(rates)
	median, _ := stats.Median(rates)
	stddev, _ := stats.StandardDeviation(rates)
	minRate, _ := stats.Min(rates)
	maxRate, _ := stats.Max(rates)

	result.Summary = fmt.Sprintf("Analyzed %d trades (%d analyzable): mean fill rate %.2f%%",
		len(selected), len(rates), mean*100)

	lines := []string{
		fmt.Sprintf("mean=%.4f, median=%.4f, std=%.4f, min=%.4f, max=%.4f",
			mean, median, stddev, minRate, maxRate),
	}

	switch req := v.(type) {
	case ByTime:
		lines = append(lines, perTickerBreakdown(selected)...)
	case ByTicker:
		lines = append(lines, timelineBreakdown(selected)...)
	case Deep:
		lines = append(lines, e.deepDetails(req, selected)...)
	}

	result.Details = strings.Join(lines, "\n")
	return result
}

// perTickerBreakdown 按标的分组的成交率均值明细（ByTime 视图）
func perTickerBreakdown(selected []Trade) []string {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, t := range selected {
		if !t.Analyzable {
			continue
		}
		sums[t.Ticker] += t.FillRate
		counts[t.Ticker]++
	}

	tickers := make([]string, 0, len(counts))
	for tk := range counts {
		tickers = append(tickers, tk)
	}
	sort.Strings(tickers)

	lines := []string{"Per-ticker performance:"}
	for _, tk := range tickers {
		lines = append(lines, fmt.Sprintf("  %s: %.3f (%d trades)",
			tk, sums[tk]/float64(counts[tk]), counts[tk]))
	}
	return lines
}

// timelineBreakdown 按下达时间分组的成交率均值明细（ByTicker 视图）
func timelineBreakdown(selected []Trade) []string {
	sums := make(map[model.TimeKey]float64)
	counts := make(map[model.TimeKey]int)
	for _, t := range selected {
		if !t.Analyzable {
			continue
		}
		sums[t.TimeFrom] += t.FillRate
		counts[t.TimeFrom]++
	}

	times := make([]model.TimeKey, 0, len(counts))
	for tk := range counts {
		times = append(times, tk)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	lines := []string{"Timeline performance:"}
	for _, tk := range times {
		lines = append(lines, fmt.Sprintf("  %s: %.3f (%d trades)",
			timefmt.Format(tk), sums[tk]/float64(counts[tk]), counts[tk]))
	}
	return lines
}

// deepDetails 深度视图的逐交易员明细与净成交率
// 净成交率 = Σ实际 / Σ意图（只聚合可分析记录）；
// 合计意图在容差内时按 0 处理，不视为故障。
func (e *Engine) deepDetails(req Deep, selected []Trade) []string {
	lines := []string{fmt.Sprintf("per-trader breakdown at %s for %s:",
		timefmt.Format(req.Time), req.Ticker)}

	sumIntended, sumActual := 0.0, 0.0
	for _, t := range selected {
		status := "fill_rate=n/a (zero intended)"
		if t.Analyzable {
			status = fmt.Sprintf("fill_rate=%.4f", t.FillRate)
			sumIntended += t.IntendedTrade
			sumActual += t.ActualTrade
		}
		lines = append(lines, fmt.Sprintf(
			"  %s: target=%.0f, pos=%.0f->%.0f, intended=%.0f, actual=%.0f, %s",
			t.ParticipantID, t.Target, t.PosBefore, t.PosAfter,
			t.IntendedTrade, t.ActualTrade, status))
	}

	netFill := 0.0
	if sumIntended > e.tolerance || sumIntended < -e.tolerance {
		netFill = sumActual / sumIntended
	}
	lines = append(lines, fmt.Sprintf("net: intended=%.0f, actual=%.0f, net_fill=%.4f",
		sumIntended, sumActual, netFill))
	return lines
}
