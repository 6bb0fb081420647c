// Package model 定义校验器中使用的核心数据结构。
// 包含 alpha 信号事件、仓位快照、行情快照等核心类型。
package model

// Phase 信号所处的流水线阶段
type Phase string

const (
	// PhasePM PM 原始目标信号（InCheckAlphaEv）
	PhasePM Phase = "pm"
	// PhaseMerged 合并后的组目标信号（MergedAlphaEv）
	PhaseMerged Phase = "merged"
	// PhaseSplit 拆分到交易员的目标信号（SplitAlphaEv）
	PhaseSplit Phase = "split"
)

// TimeKey 交易时间键
// 取值为形如 930000000（09:30）的整数时间戳；盘前哨兵值见 PrevClose。
type TimeKey int64

// PrevClose 昨日收盘哨兵时间键
// 原始数据中的 nil_last_alpha 标记在加载阶段统一归一化为该值，
// 语义上排在所有盘中时间之前。
const PrevClose TimeKey = -1

// IsPrevClose 判断是否为昨日收盘哨兵
func (t TimeKey) IsPrevClose() bool {
	return t == PrevClose
}

// AlphaEvent 目标仓位信号事件
// 由上游加载器提供，time 已完成哨兵归一化。
type AlphaEvent struct {
	// Phase 所处流水线阶段: pm, merged, split
	Phase Phase
	// ParticipantID 参与者标识（PM id、组 id 或交易员 id）
	ParticipantID string
	// Time 交易时间键
	Time TimeKey
	// Ticker 标的代码，如 000001.SZE
	Ticker string
	// TargetVolume 目标仓位（股）
	TargetVolume float64
}

// PositionEvent 实时仓位快照事件（SplitCtxEv）
type PositionEvent struct {
	// ParticipantID 交易员标识
	ParticipantID string
	// Time 交易时间键
	Time TimeKey
	// Ticker 标的代码
	Ticker string
	// CurrentPosition 实时总仓位
	CurrentPosition float64
	// LongPosition 实时多头仓位
	LongPosition float64
	// ShortPosition 实时空头仓位
	ShortPosition float64
	// AvailSellVolume 实时可卖量
	// 上游可能已按 T+1 规则预先计算；缺失时为 0。
	AvailSellVolume float64
}

// MarketEvent 行情快照事件（MarketDataEv，可选）
// 仅供报告层使用，校验逻辑不消费。
type MarketEvent struct {
	// Time 交易时间键
	Time TimeKey
	// Ticker 标的代码
	Ticker string
	// LastPrice 最新价
	LastPrice float64
	// PrevClosePrice 昨收价
	PrevClosePrice float64
}

// PMVirtualPosition PM 虚拟仓位记录（可选输入表）
// 作为 T+1 校验的备选数据源；time=PrevClose 的行表示昨日收盘虚拟仓位。
type PMVirtualPosition struct {
	// Time 交易时间键
	Time TimeKey
	// Ticker 标的代码
	Ticker string
	// Position 虚拟仓位
	Position float64
}

// VirtualPosition T+1 校验器内部的单标的持仓台账
// 每次运行重新构建，按时间单调推进，运行结束即丢弃，不跨运行保留。
type VirtualPosition struct {
	// Ticker 标的代码
	Ticker string
	// Settled 已结算（T+1 可卖）数量
	Settled float64
	// Unsettled 当日买入、尚未结算的数量
	Unsettled float64
}
