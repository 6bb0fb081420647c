// Package checker 方向一致性校验测试
package checker

import (
	"strings"
	"testing"

	"alpha-pipeline-validator/internal/core/model"
)

func TestDirection_BuyIncreased(t *testing.T) {
	split := []model.AlphaEvent{
		// 目标 6000 > 当前 5000，买入意图
		alpha(model.PhaseSplit, "TRADER_001", 930000000, "000001.SZE", 6000),
	}
	positions := []model.PositionEvent{
		position("TRADER_001", 930000000, "000001.SZE", 5000),
		position("TRADER_001", 940000000, "000001.SZE", 5800),
	}

	c := NewDirectionChecker(testTol)
	res := c.Check(newDataset(nil, nil, split, positions))
	if res.Status != model.StatusPass {
		t.Fatalf("买入意图且仓位上升应返回 PASS, got %s: %s", res.Status, res.Message)
	}
}

func TestDirection_BuyDecreased(t *testing.T) {
	split := []model.AlphaEvent{
		alpha(model.PhaseSplit, "TRADER_001", 930000000, "000001.SZE", 6000),
	}
	positions := []model.PositionEvent{
		position("TRADER_001", 930000000, "000001.SZE", 5000),
		// 买入意图下仓位反而下降
		position("TRADER_001", 940000000, "000001.SZE", 4500),
	}

	c := NewDirectionChecker(testTol)
	res := c.Check(newDataset(nil, nil, split, positions))
	if res.Status != model.StatusFail {
		t.Fatalf("买入意图仓位下降应返回 FAIL, got %s", res.Status)
	}
	if !strings.Contains(res.Details, "BUY Direction Violations") {
		t.Fatalf("明细应归入 BUY 违例: %s", res.Details)
	}
}

func TestDirection_SellIncreased(t *testing.T) {
	split := []model.AlphaEvent{
		// 目标 4000 < 当前 5000，卖出意图
		alpha(model.PhaseSplit, "TRADER_001", 930000000, "000001.SZE", 4000),
	}
	positions := []model.PositionEvent{
		position("TRADER_001", 930000000, "000001.SZE", 5000),
		// 卖出意图下仓位反而上升
		position("TRADER_001", 940000000, "000001.SZE", 5500),
	}

	c := NewDirectionChecker(testTol)
	res := c.Check(newDataset(nil, nil, split, positions))
	if res.Status != model.StatusFail {
		t.Fatalf("卖出意图仓位上升应返回 FAIL, got %s", res.Status)
	}
	if !strings.Contains(res.Details, "SELL Direction Violations") {
		t.Fatalf("明细应归入 SELL 违例: %s", res.Details)
	}
}

func TestDirection_ZeroIntentNoObligation(t *testing.T) {
	split := []model.AlphaEvent{
		// 目标与当前仓位一致，无交易意图
		alpha(model.PhaseSplit, "TRADER_001", 930000000, "000001.SZE", 5000),
	}
	positions := []model.PositionEvent{
		position("TRADER_001", 930000000, "000001.SZE", 5000),
		// 仓位任意变动都不构成违例
		position("TRADER_001", 940000000, "000001.SZE", 4000),
	}

	c := NewDirectionChecker(testTol)
	res := c.Check(newDataset(nil, nil, split, positions))
	if res.Status != model.StatusPass {
		t.Fatalf("无交易意图不产生方向义务, got %s: %s", res.Status, res.Message)
	}
}

func TestDirection_MissingSnapshotSkipped(t *testing.T) {
	split := []model.AlphaEvent{
		alpha(model.PhaseSplit, "TRADER_001", 930000000, "000001.SZE", 6000),
	}
	positions := []model.PositionEvent{
		position("TRADER_001", 930000000, "000001.SZE", 5000),
		// 940000000 无该交易员快照，但时间轴上有其他记录
		position("TRADER_002", 940000000, "000001.SZE", 1000),
	}

	c := NewDirectionChecker(testTol)
	res := c.Check(newDataset(nil, nil, split, positions))
	if res.Status != model.StatusPass {
		t.Fatalf("两端快照不全的组合应跳过, got %s: %s", res.Status, res.Message)
	}
}

func TestDirection_PartialProgressOK(t *testing.T) {
	split := []model.AlphaEvent{
		alpha(model.PhaseSplit, "TRADER_001", 930000000, "000001.SZE", 6000),
	}
	positions := []model.PositionEvent{
		position("TRADER_001", 930000000, "000001.SZE", 5000),
		// 未完全达成目标但方向正确
		position("TRADER_001", 940000000, "000001.SZE", 5100),
	}

	c := NewDirectionChecker(testTol)
	res := c.Check(newDataset(nil, nil, split, positions))
	if res.Status != model.StatusPass {
		t.Fatalf("方向正确的部分成交应返回 PASS, got %s: %s", res.Status, res.Message)
	}
}
