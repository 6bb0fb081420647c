// Package checker 拆分基数校验测试
package checker

import (
	"strings"
	"testing"

	"alpha-pipeline-validator/internal/core/model"
)

func TestAllocation_ExactTraderCount(t *testing.T) {
	split := []model.AlphaEvent{
		alpha(model.PhaseSplit, "TRADER_001", 930000000, "000001.SZE", 6000),
		alpha(model.PhaseSplit, "TRADER_002", 930000000, "000001.SZE", 4000),
	}

	c := NewAllocationChecker(2)
	res := c.Check(newDataset(nil, nil, split, nil))
	if res.Status != model.StatusPass {
		t.Fatalf("满员拆分组应返回 PASS, got %s", res.Status)
	}
}

func TestAllocation_UnderAllocated(t *testing.T) {
	split := []model.AlphaEvent{
		alpha(model.PhaseSplit, "TRADER_001", 930000000, "000001.SZE", 6000),
		alpha(model.PhaseSplit, "TRADER_002", 930000000, "000001.SZE", 4000),
		// 只有一个交易员的组
		alpha(model.PhaseSplit, "TRADER_001", 940000000, "600519.SSE", 200),
	}

	c := NewAllocationChecker(2)
	res := c.Check(newDataset(nil, nil, split, nil))
	// 基数问题可报告但非致命
	if res.Status != model.StatusWarn {
		t.Fatalf("缺员拆分组应返回 WARN, got %s", res.Status)
	}
	if !strings.Contains(res.Details, "expected 2 traders, got 1") {
		t.Fatalf("明细应报告期望与实际数量: %s", res.Details)
	}
}
