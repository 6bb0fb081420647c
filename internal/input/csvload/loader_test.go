// Package csvload 加载器测试
package csvload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"alpha-pipeline-validator/internal/config"
	"alpha-pipeline-validator/internal/core/model"
)

func writeTable(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("写临时事件表失败: %v", err)
	}
}

func inputConfig(dir string) config.InputConfig {
	cfg := config.Default()
	cfg.Input.Dir = dir
	return cfg.Input
}

func TestLoader_FullSet(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "InCheckAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n"+
			"InCheckAlphaEv|PM_001|930000000|000001.SZE|6000\n"+
			"InCheckAlphaEv|PM_002|930000000|000001.SZE|4000\n")
	writeTable(t, dir, "MergedAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n"+
			"MergedAlphaEv|G1|930000000|000001.SZE|10000\n")
	writeTable(t, dir, "SplitAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n"+
			"SplitAlphaEv|TRADER_001|930000000|000001.SZE|7000\n"+
			"SplitAlphaEv|TRADER_002|930000000|000001.SZE|3000\n")
	writeTable(t, dir, "SplitCtxEv.csv",
		"event|alphaid|time|ticker|realtime_pos|realtime_long_pos|realtime_short_pos|realtime_avail_shot_vol\n"+
			"SplitCtxEv|TRADER_001|930000000|000001.SZE|5000|5000|0|2000\n")
	writeTable(t, dir, "MarketDataEv.csv",
		"event|alphaid|time|ticker|last_price|prev_close_price\n"+
			"MarketDataEv|MKT|930000000|000001.SZE|10.52|10.40\n")
	writeTable(t, dir, "PmVirtualPosEv.csv",
		"time|ticker|virtual_position\n"+
			"nil_last_alpha|000001.SZE|8000\n")

	ds, err := NewLoader(inputConfig(dir), nil).Load()
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}

	if len(ds.PM) != 2 || len(ds.Merged) != 1 || len(ds.Split) != 2 {
		t.Fatalf("信号表行数不正确: pm=%d merged=%d split=%d", len(ds.PM), len(ds.Merged), len(ds.Split))
	}
	if len(ds.Positions) != 1 {
		t.Fatalf("仓位表行数 = %d, want 1", len(ds.Positions))
	}
	if !ds.HasMarket() || !ds.HasPMVirtualPos() {
		t.Fatalf("可选表存在时应被加载")
	}

	// nil_last_alpha 归一化为昨收哨兵
	v, ok := ds.PMVirtualPrevClose("000001.SZE")
	if !ok || v != 8000 {
		t.Fatalf("昨收虚拟仓位 = %v (ok=%v), want 8000", v, ok)
	}

	snap, ok := ds.Position(930000000, "TRADER_001", "000001.SZE")
	if !ok || snap.AvailSellVolume != 2000 {
		t.Fatalf("可卖量解析不正确: %v (ok=%v)", snap.AvailSellVolume, ok)
	}
}

func TestLoader_NilLastAlphaTime(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "InCheckAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n"+
			"InCheckAlphaEv|PM_001|nil_last_alpha|000001.SZE|8000\n")
	writeTable(t, dir, "SplitAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n")
	writeTable(t, dir, "SplitCtxEv.csv",
		"event|alphaid|time|ticker|realtime_pos|realtime_long_pos|realtime_short_pos|realtime_avail_shot_vol\n")

	ds, err := NewLoader(inputConfig(dir), nil).Load()
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if !ds.PM[0].Time.IsPrevClose() {
		t.Fatalf("nil_last_alpha 应归一化为昨收哨兵, got %v", ds.PM[0].Time)
	}
}

func TestLoader_MergedFallbackToPM(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "InCheckAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n"+
			"InCheckAlphaEv|PM_001|930000000|000001.SZE|6000\n")
	writeTable(t, dir, "SplitAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n"+
			"SplitAlphaEv|TRADER_001|930000000|000001.SZE|6000\n")
	writeTable(t, dir, "SplitCtxEv.csv",
		"event|alphaid|time|ticker|realtime_pos|realtime_long_pos|realtime_short_pos|realtime_avail_shot_vol\n")

	ds, err := NewLoader(inputConfig(dir), nil).Load()
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if len(ds.Merged) != 1 {
		t.Fatalf("合并表缺失时应以 PM 表代替: len = %d", len(ds.Merged))
	}
	if ds.Merged[0].Phase != model.PhaseMerged {
		t.Fatalf("回退记录的阶段应为 merged, got %s", ds.Merged[0].Phase)
	}
	if ds.Merged[0].TargetVolume != 6000 {
		t.Fatalf("回退记录应复制 PM 目标量, got %v", ds.Merged[0].TargetVolume)
	}
}

func TestLoader_MissingRequiredTable(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "InCheckAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n")

	if _, err := NewLoader(inputConfig(dir), nil).Load(); err == nil {
		t.Fatalf("必需表缺失应返回错误")
	}
}

func TestLoader_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "InCheckAlphaEv.csv",
		"event|alphaid|time|ticker\n"+
			"InCheckAlphaEv|PM_001|930000000|000001.SZE\n")
	writeTable(t, dir, "SplitAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n")
	writeTable(t, dir, "SplitCtxEv.csv",
		"event|alphaid|time|ticker|realtime_pos|realtime_long_pos|realtime_short_pos|realtime_avail_shot_vol\n")

	_, err := NewLoader(inputConfig(dir), nil).Load()
	if err == nil {
		t.Fatalf("缺少必需列应返回错误")
	}
	if !strings.Contains(err.Error(), "volume") {
		t.Fatalf("错误信息应指明缺失列: %v", err)
	}
}

func TestLoader_BadVolume(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "InCheckAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n"+
			"InCheckAlphaEv|PM_001|930000000|000001.SZE|abc\n")
	writeTable(t, dir, "SplitAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n")
	writeTable(t, dir, "SplitCtxEv.csv",
		"event|alphaid|time|ticker|realtime_pos|realtime_long_pos|realtime_short_pos|realtime_avail_shot_vol\n")

	_, err := NewLoader(inputConfig(dir), nil).Load()
	if err == nil {
		t.Fatalf("非数值 volume 应返回错误")
	}
	if !strings.Contains(err.Error(), "第 2 行") {
		t.Fatalf("错误信息应带行号: %v", err)
	}
}

func TestLoader_OptionalTablesAbsent(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "InCheckAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n")
	writeTable(t, dir, "SplitAlphaEv.csv",
		"event|alphaid|time|ticker|volume\n")
	writeTable(t, dir, "SplitCtxEv.csv",
		"event|alphaid|time|ticker|realtime_pos|realtime_long_pos|realtime_short_pos|realtime_avail_shot_vol\n")

	ds, err := NewLoader(inputConfig(dir), nil).Load()
	if err != nil {
		t.Fatalf("可选表缺失不应报错: %v", err)
	}
	if ds.HasMarket() || ds.HasPMVirtualPos() {
		t.Fatalf("可选表缺失时 Has* 应为 false")
	}
}
