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

// ConservationChecker 两阶段量守恒校验
// 对每个 (time, ticker) 组验证 Σ PM == Σ Merged 与 Σ Merged == Σ Split。
// 昨收哨兵处缺席的 PM 按贡献 0 处理（一等业务规则，非数据缺失）；
// 拆分表中找不到上游合并记录的组作为 orphaned split 单独报告。
type ConservationChecker struct {
	// tolerance 浮点比较的绝对容差
	tolerance float64
}

// NewConservationChecker 创建量守恒校验器
func NewConservationChecker(tolerance float64) *ConservationChecker {
	return &ConservationChecker{tolerance: tolerance}
}

// Name 校验器名称
func (c *ConservationChecker) Name() string {
	return "Volume Conservation (PM->Merged->Split)"
}

// Check 执行两阶段守恒校验
func (c *ConservationChecker) Check(ds *dataset.Dataset) model.CheckResult {
	pmSums := ds.PMSums()
	mergedSums := ds.MergedSums()
	splitSums := ds.SplitSums()

	var violations []string

	// 阶段一: PM → Merged
	// 取两侧键的并集；某侧缺失按 0 计。昨收处缺席 PM 自然贡献 0，
	// 只有两侧合计确实不等时才算违例。
	for _, key := range unionGroupKeys(pmSums, mergedSums) {
		pmSum := pmSums[key]
		mergedSum := mergedSums[key]
		diff := pmSum - mergedSum
		if math.Abs(diff) > c.tolerance {
			violations = append(violations, fmt.Sprintf(
				"PM->Merged violation at time=%s, ticker=%s: pm_sum=%.6f, merged_sum=%.6f, diff=%.6f",
				timefmt.Format(key.Time), key.Ticker, pmSum, mergedSum, diff))
		}
	}

	// 阶段二: Merged → Split
	for _, key := range sortedGroupKeys(mergedSums) {
		mergedSum := mergedSums[key]
		splitSum := splitSums[key]
		diff := mergedSum - splitSum
		if math.Abs(diff) > c.tolerance {
			violations = append(violations, fmt.Sprintf(
				"Merged->Split violation at time=%s, ticker=%s: merged_sum=%.6f, split_sum=%.6f, diff=%.6f",
				timefmt.Format(key.Time), key.Ticker, mergedSum, splitSum, diff))
		}
	}

	// 孤儿拆分记录: 下游存在、上游缺失，单独的违例子类
	for _, key := range sortedGroupKeys(splitSums) {
		if _, ok := mergedSums[key]; !ok {
			violations = append(violations, fmt.Sprintf(
				"Orphaned split at time=%s, ticker=%s: split_sum=%.6f (no corresponding merged input)",
				timefmt.Format(key.Time), key.Ticker, splitSums[key]))
		}
	}

	if len(violations) > 0 {
		return model.CheckResult{
			CheckerName: c.Name(),
			Status:      model.StatusFail,
			Message:     fmt.Sprintf("Found %d conservation violations across phase boundaries", len(violations)),
			Details:     strings.Join(violations, "\n"),
		}
	}

	groups := len(unionGroupKeys(pmSums, mergedSums))
	return model.CheckResult{
		CheckerName: c.Name(),
		Status:      model.StatusPass,
		Message:     fmt.Sprintf("All %d (time, ticker) groups conserve volume across both phase boundaries", groups),
	}
}

// sortedGroupKeys 返回按 (time, ticker) 升序排序的键列表
// 保证违例明细的输出顺序确定。
func sortedGroupKeys(m map[dataset.GroupKey]float64) []dataset.GroupKey {
	keys := make([]dataset.GroupKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortGroupKeys(keys)
	return keys
}

// unionGroupKeys 返回两个分组 map 键的并集，按 (time, ticker) 升序
func unionGroupKeys(a, b map[dataset.GroupKey]float64) []dataset.GroupKey {
	set := make(map[dataset.GroupKey]struct{}, len(a)+len(b))
	for k := range a {
		set[k] = struct{}{}
	}
	for k := range b {
		set[k] = struct{}{}
	}
	keys := make([]dataset.GroupKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sortGroupKeys(keys)
	return keys
}

func sortGroupKeys(keys []dataset.GroupKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Time != keys[j].Time {
			return keys[i].Time < keys[j].Time
		}
		return keys[i].Ticker < keys[j].Ticker
	})
}
