// Package checker 实现流水线规则引擎。
package checker

import (
	"fmt"
	"strings"

	"alpha-pipeline-validator/internal/core/dataset"
	"alpha-pipeline-validator/internal/core/model"
	"alpha-pipeline-validator/internal/util/timefmt"
)

// AllocationChecker 拆分基数校验
// 每个 (time, ticker) 合并组应拆分到固定数量的交易员（业务规则）。
// 违例可报告但非致命，因此返回 WARN 而非 FAIL。
type AllocationChecker struct {
	// tradersPerGroup 每组应有的交易员数量
	tradersPerGroup int
}

// NewAllocationChecker 创建拆分基数校验器
func NewAllocationChecker(tradersPerGroup int) *AllocationChecker {
	return &AllocationChecker{tradersPerGroup: tradersPerGroup}
}

// Name 校验器名称
func (c *AllocationChecker) Name() string {
	return "Group Allocation Cardinality"
}

// Check 检查每个拆分组的交易员数量
func (c *AllocationChecker) Check(ds *dataset.Dataset) model.CheckResult {
	counts := ds.SplitTraderCounts()

	var violations []string
	keys := make([]dataset.GroupKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sortGroupKeys(keys)

	for _, key := range keys {
		if counts[key] != c.tradersPerGroup {
			violations = append(violations, fmt.Sprintf(
				"Allocation rule violation at time=%s, ticker=%s: expected %d traders, got %d",
				timefmt.Format(key.Time), key.Ticker, c.tradersPerGroup, counts[key]))
		}
	}

	if len(violations) > 0 {
		return model.CheckResult{
			CheckerName: c.Name(),
			Status:      model.StatusWarn,
			Message:     fmt.Sprintf("Found %d groups not allocated to exactly %d traders", len(violations), c.tradersPerGroup),
			Details:     strings.Join(violations, "\n"),
		}
	}

	return model.CheckResult{
		CheckerName: c.Name(),
		Status:      model.StatusPass,
		Message:     fmt.Sprintf("All %d groups are allocated to exactly %d traders", len(counts), c.tradersPerGroup),
	}
}
