// Package dataset 维护单次校验运行的全量数据快照。
// 五张对齐的事件表在加载后一次性构建索引，此后只读；
// 各校验器可在独立 goroutine 中并发读取，无共享可变状态。
package dataset

import (
	"sort"

	"alpha-pipeline-validator/internal/core/model"
)

// GroupKey (time, ticker) 分组键
type GroupKey struct {
	// Time 交易时间键
	Time model.TimeKey
	// Ticker 标的代码
	Ticker string
}

// TraderKey (time, participant, ticker) 明细键
type TraderKey struct {
	// Time 交易时间键
	Time model.TimeKey
	// ParticipantID 参与者标识
	ParticipantID string
	// Ticker 标的代码
	Ticker string
}

// Dataset 单次运行的数据快照
// 构建完成后视为只读；所有索引在 New 中一次建好，校验阶段不再写入。
type Dataset struct {
	// PM PM 原始信号表
	PM []model.AlphaEvent
	// Merged 合并信号表（缺失时加载层以 PM 表代替）
	Merged []model.AlphaEvent
	// Split 拆分信号表
	Split []model.AlphaEvent
	// Positions 仓位快照表
	Positions []model.PositionEvent
	// Market 行情快照表（可能为 nil）
	Market []model.MarketEvent
	// PMVirtualPos PM 虚拟仓位表（可能为 nil）
	PMVirtualPos []model.PMVirtualPosition

	// pmSums 按 (time, ticker) 汇总的 PM 目标量
	pmSums map[GroupKey]float64
	// mergedSums 按 (time, ticker) 汇总的合并目标量
	mergedSums map[GroupKey]float64
	// splitSums 按 (time, ticker) 汇总的拆分目标量
	splitSums map[GroupKey]float64
	// splitTraders 按 (time, ticker) 统计的拆分交易员数量
	splitTraders map[GroupKey]int

	// splitTargets 按 (time, participant, ticker) 索引的拆分目标量
	// 同键重复记录做累加，保证计数与求和的完整性。
	splitTargets map[TraderKey]float64
	// positions 按 (time, participant, ticker) 索引的仓位快照
	positions map[TraderKey]model.PositionEvent
	// availSellSums 按 (time, ticker) 汇总的可卖量（跨交易员）
	availSellSums map[GroupKey]float64
	// positionSums 按 (time, ticker) 汇总的实时总仓位（跨交易员）
	positionSums map[GroupKey]float64

	// mergedByTicker 按标的组织、按时间升序排序的盘中合并目标序列
	mergedByTicker map[string][]model.AlphaEvent
	// pmVPosPrevClose 按标的索引的昨收虚拟仓位
	pmVPosPrevClose map[string]float64

	// splitTimes 拆分表的盘中时间轴（升序、去重，不含 PrevClose）
	splitTimes []model.TimeKey
	// positionTimes 仓位表的盘中时间轴（升序、去重，不含 PrevClose）
	positionTimes []model.TimeKey
}

// New 构建数据快照并建立全部索引
// 参数 market 与 pmVPos 传 nil 表示对应可选表未提供。
func New(pm, merged, split []model.AlphaEvent, positions []model.PositionEvent, market []model.MarketEvent, pmVPos []model.PMVirtualPosition) *Dataset {
	ds := &Dataset{
		PM:           pm,
		Merged:       merged,
		Split:        split,
		Positions:    positions,
		Market:       market,
		PMVirtualPos: pmVPos,

		pmSums:       make(map[GroupKey]float64),
		mergedSums:   make(map[GroupKey]float64),
		splitSums:    make(map[GroupKey]float64),
		splitTraders: make(map[GroupKey]int),

		splitTargets:  make(map[TraderKey]float64),
		positions:     make(map[TraderKey]model.PositionEvent),
		availSellSums: make(map[GroupKey]float64),
		positionSums:  make(map[GroupKey]float64),

		mergedByTicker:  make(map[string][]model.AlphaEvent),
		pmVPosPrevClose: make(map[string]float64),
	}

	for _, ev := range pm {
		ds.pmSums[GroupKey{Time: ev.Time, Ticker: ev.Ticker}] += ev.TargetVolume
	}
	for _, ev := range merged {
		ds.mergedSums[GroupKey{Time: ev.Time, Ticker: ev.Ticker}] += ev.TargetVolume
		if !ev.Time.IsPrevClose() {
			ds.mergedByTicker[ev.Ticker] = append(ds.mergedByTicker[ev.Ticker], ev)
		}
	}
	for _, seq := range ds.mergedByTicker {
		sort.Slice(seq, func(i, j int) bool { return seq[i].Time < seq[j].Time })
	}

	splitTimeSet := make(map[model.TimeKey]struct{})
	for _, ev := range split {
		gk := GroupKey{Time: ev.Time, Ticker: ev.Ticker}
		ds.splitSums[gk] += ev.TargetVolume
		ds.splitTraders[gk]++
		ds.splitTargets[TraderKey{Time: ev.Time, ParticipantID: ev.ParticipantID, Ticker: ev.Ticker}] += ev.TargetVolume
		if !ev.Time.IsPrevClose() {
			splitTimeSet[ev.Time] = struct{}{}
		}
	}
	ds.splitTimes = sortedTimes(splitTimeSet)

	posTimeSet := make(map[model.TimeKey]struct{})
	for _, ev := range positions {
		ds.positions[TraderKey{Time: ev.Time, ParticipantID: ev.ParticipantID, Ticker: ev.Ticker}] = ev
		ds.availSellSums[GroupKey{Time: ev.Time, Ticker: ev.Ticker}] += ev.AvailSellVolume
		ds.positionSums[GroupKey{Time: ev.Time, Ticker: ev.Ticker}] += ev.CurrentPosition
		if !ev.Time.IsPrevClose() {
			posTimeSet[ev.Time] = struct{}{}
		}
	}
	ds.positionTimes = sortedTimes(posTimeSet)

	for _, vp := range pmVPos {
		if vp.Time.IsPrevClose() {
			ds.pmVPosPrevClose[vp.Ticker] = vp.Position
		}
	}

	return ds
}

func sortedTimes(set map[model.TimeKey]struct{}) []model.TimeKey {
	times := make([]model.TimeKey, 0, len(set))
	for t := range set {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times
}

// HasMarket 行情表是否提供
func (d *Dataset) HasMarket() bool {
	return d.Market != nil
}

// HasPMVirtualPos PM 虚拟仓位表是否提供
func (d *Dataset) HasPMVirtualPos() bool {
	return d.PMVirtualPos != nil
}

// HasAvailSellVolume 仓位快照是否携带可卖量
// 只要任一快照给出正可卖量即认为上游提供了该字段。
func (d *Dataset) HasAvailSellVolume() bool {
	for _, ev := range d.Positions {
		if ev.AvailSellVolume > 0 {
			return true
		}
	}
	return false
}

// PMSums 返回 PM 阶段按 (time, ticker) 汇总的目标量
// 返回的 map 应视为只读。
func (d *Dataset) PMSums() map[GroupKey]float64 {
	return d.pmSums
}

// MergedSums 返回合并阶段按 (time, ticker) 汇总的目标量
func (d *Dataset) MergedSums() map[GroupKey]float64 {
	return d.mergedSums
}

// SplitSums 返回拆分阶段按 (time, ticker) 汇总的目标量
func (d *Dataset) SplitSums() map[GroupKey]float64 {
	return d.splitSums
}

// SplitTraderCounts 返回每个 (time, ticker) 组拆分到的交易员数量
func (d *Dataset) SplitTraderCounts() map[GroupKey]int {
	return d.splitTraders
}

// SplitTarget 查询拆分目标量
// 返回: 目标量与是否存在
func (d *Dataset) SplitTarget(t model.TimeKey, participant, ticker string) (float64, bool) {
	v, ok := d.splitTargets[TraderKey{Time: t, ParticipantID: participant, Ticker: ticker}]
	return v, ok
}

// Position 查询仓位快照
// 返回: 快照与是否存在
func (d *Dataset) Position(t model.TimeKey, participant, ticker string) (model.PositionEvent, bool) {
	ev, ok := d.positions[TraderKey{Time: t, ParticipantID: participant, Ticker: ticker}]
	return ev, ok
}

// AvailSellSum 查询 (time, ticker) 跨交易员的可卖量合计
func (d *Dataset) AvailSellSum(t model.TimeKey, ticker string) float64 {
	return d.availSellSums[GroupKey{Time: t, Ticker: ticker}]
}

// PositionSum 查询 (time, ticker) 跨交易员的实时总仓位合计
func (d *Dataset) PositionSum(t model.TimeKey, ticker string) float64 {
	return d.positionSums[GroupKey{Time: t, Ticker: ticker}]
}

// MergedTimeline 返回某标的按时间升序的盘中合并目标序列
// 不含 PrevClose 哨兵；返回的切片应视为只读。
func (d *Dataset) MergedTimeline(ticker string) []model.AlphaEvent {
	return d.mergedByTicker[ticker]
}

// MergedTickers 返回合并表覆盖的全部标的
func (d *Dataset) MergedTickers() []string {
	set := make(map[string]struct{})
	for _, ev := range d.Merged {
		set[ev.Ticker] = struct{}{}
	}
	tickers := make([]string, 0, len(set))
	for tk := range set {
		tickers = append(tickers, tk)
	}
	sort.Strings(tickers)
	return tickers
}

// PMVirtualPrevClose 查询某标的的昨收虚拟仓位
// 返回: 仓位与是否存在（不存在时按 0 处理由调用方决定）
func (d *Dataset) PMVirtualPrevClose(ticker string) (float64, bool) {
	v, ok := d.pmVPosPrevClose[ticker]
	return v, ok
}

// SplitTimes 返回拆分表的盘中时间轴（升序、去重）
func (d *Dataset) SplitTimes() []model.TimeKey {
	return d.splitTimes
}

// PositionTimes 返回仓位表的盘中时间轴（升序、去重）
func (d *Dataset) PositionTimes() []model.TimeKey {
	return d.positionTimes
}
