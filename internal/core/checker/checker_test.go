// Package checker 执行器测试
package checker

import (
	"testing"

	"alpha-pipeline-validator/internal/config"
	"alpha-pipeline-validator/internal/core/dataset"
	"alpha-pipeline-validator/internal/core/model"
)

type panicChecker struct{}

func (panicChecker) Name() string { return "Panic Checker" }
func (panicChecker) Check(ds *dataset.Dataset) model.CheckResult {
	panic("boom")
}

type passChecker struct{}

func (passChecker) Name() string { return "Pass Checker" }
func (passChecker) Check(ds *dataset.Dataset) model.CheckResult {
	return model.CheckResult{CheckerName: "Pass Checker", Status: model.StatusPass, Message: "ok"}
}

func TestRunner_PanicBecomesError(t *testing.T) {
	r := NewRunner([]Checker{panicChecker{}, passChecker{}}, nil)
	results := r.Run(newDataset(nil, nil, nil, nil))

	if len(results) != 2 {
		t.Fatalf("结果数量应与注册表等长: %d", len(results))
	}
	if results[0].Status != model.StatusError {
		t.Fatalf("panic 的校验器应转为 ERROR, got %s", results[0].Status)
	}
	if results[0].CheckerName != "Panic Checker" {
		t.Fatalf("ERROR 结果应落在对应槽位: %s", results[0].CheckerName)
	}
	if results[1].Status != model.StatusPass {
		t.Fatalf("其余校验器不应受影响, got %s", results[1].Status)
	}
}

func TestDefaultRegistry(t *testing.T) {
	checkers := DefaultRegistry(config.Default().Check)
	if len(checkers) != 6 {
		t.Fatalf("注册表应含 6 个校验器, got %d", len(checkers))
	}

	seen := make(map[string]bool)
	for _, c := range checkers {
		if c.Name() == "" {
			t.Fatalf("校验器名称不能为空")
		}
		if seen[c.Name()] {
			t.Fatalf("校验器名称重复: %s", c.Name())
		}
		seen[c.Name()] = true
	}
}

func TestRunner_EmptyDatasetAllRun(t *testing.T) {
	r := NewRunner(DefaultRegistry(config.Default().Check), nil)
	results := r.Run(newDataset(nil, nil, nil, nil))

	if len(results) != 6 {
		t.Fatalf("空数据集也应返回全部结果: %d", len(results))
	}
	for _, res := range results {
		if res.CheckerName == "" {
			t.Fatalf("每个结果都应带校验器名称: %+v", res)
		}
	}
}
