// Package timefmt 提供交易时间键的格式化工具。
// 时间键为形如 930000000（09:30:00.000）的整数；昨日收盘哨兵显示为 PREV。
package timefmt

import (
	"strconv"

	"alpha-pipeline-validator/internal/core/model"
)

// Format 将时间键格式化为可读形式
// 例: 940000000 → "9:40"，1000000000 → "10:00"，PrevClose → "PREV"。
// 位数不足以解析出时分的键原样返回数字串。
// 参数 t: 交易时间键
// 返回: 可读时间字符串
func Format(t model.TimeKey) string {
	if t.IsPrevClose() {
		return "PREV"
	}

	s := strconv.FormatInt(int64(t), 10)
	// 键布局: H[H] + MMSSmmmm，末 8 位固定
	if len(s) < 9 {
		return s
	}

	hour := s[:len(s)-8]
	minute := s[len(s)-8 : len(s)-6]
	return hour + ":" + minute
}

// FormatRange 格式化时间区间
// 例: (93000000, 94000000) → "9:30→9:40"
func FormatRange(from, to model.TimeKey) string {
	return Format(from) + "→" + Format(to)
}

// Key 将整数时间转换为时间键
// 非正值一律归一化为 PrevClose 哨兵，与加载层的归一化规则一致。
func Key(v int64) model.TimeKey {
	if v <= 0 {
		return model.PrevClose
	}
	return model.TimeKey(v)
}
