// Package csvload 负责加载管道分隔的生产事件表并构建数据快照。
// 表结构与生产事件流一致（event|alphaid|time|ticker|...）；
// time 列的非数字标记（nil_last_alpha）在加载阶段统一归一化为昨收哨兵。
package csvload

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"alpha-pipeline-validator/internal/config"
	"alpha-pipeline-validator/internal/core/dataset"
	"alpha-pipeline-validator/internal/core/model"
	"alpha-pipeline-validator/internal/util/timefmt"
)

// Loader 事件表加载器
type Loader struct {
	// cfg 输入数据配置
	cfg config.InputConfig
	// logger 日志记录器
	logger *zap.Logger
}

// NewLoader 创建加载器
// 参数 logger 传 nil 时使用空日志记录器。
func NewLoader(cfg config.InputConfig, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, logger: logger}
}

// Load 加载全部事件表并构建数据快照
// 必需表（PM、拆分、仓位）缺失即失败；合并表缺失时以 PM 表代替；
// 行情表与 PM 虚拟仓位表为可选，缺失时对应数据为 nil。
func (l *Loader) Load() (*dataset.Dataset, error) {
	pm, err := l.loadAlphaTable(l.cfg.PMFile, model.PhasePM, true)
	if err != nil {
		return nil, err
	}

	merged, err := l.loadAlphaTable(l.cfg.MergedFile, model.PhaseMerged, false)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		// 单 PM 直通场景下上游不产生合并表，PM 目标即组目标
		l.logger.Info("合并信号表缺失，以 PM 表代替",
			zap.String("file", l.cfg.MergedFile))
		merged = make([]model.AlphaEvent, len(pm))
		for i, ev := range pm {
			ev.Phase = model.PhaseMerged
			merged[i] = ev
		}
	}

	split, err := l.loadAlphaTable(l.cfg.SplitFile, model.PhaseSplit, true)
	if err != nil {
		return nil, err
	}

	positions, err := l.loadPositionTable()
	if err != nil {
		return nil, err
	}

	market, err := l.loadMarketTable()
	if err != nil {
		return nil, err
	}

	pmVPos, err := l.loadVirtualPosTable()
	if err != nil {
		return nil, err
	}

	l.logger.Info("事件表加载完成",
		zap.Int("pm", len(pm)),
		zap.Int("merged", len(merged)),
		zap.Int("split", len(split)),
		zap.Int("positions", len(positions)),
		zap.Int("market", len(market)),
		zap.Int("pm_virtual_pos", len(pmVPos)))

	return dataset.New(pm, merged, split, positions, market, pmVPos), nil
}

// table 解析后的单张表：列名索引 + 数据行
type table struct {
	name string
	cols map[string]int
	rows [][]string
}

// readTable 读取并解析一张管道分隔表
// required 为 false 且文件不存在时返回 (nil, nil)。
func (l *Loader) readTable(file string, required bool) (*table, error) {
	path := filepath.Join(l.cfg.Dir, file)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("打开事件表失败: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '|'
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析事件表 %s 失败: %w", file, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("事件表 %s 为空，缺少表头行", file)
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(name)] = i
	}

	return &table{name: file, cols: cols, rows: records[1:]}, nil
}

// requireColumns 校验表头包含全部必需列
// 列缺失属于数据契约破坏，直接失败，不做降级。
func (t *table) requireColumns(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := t.cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("事件表 %s 缺少必需列: %s", t.name, strings.Join(missing, ", "))
	}
	return nil
}

// timeField 解析 time 列
// 非数字标记（如 nil_last_alpha）与非正值统一归一化为昨收哨兵。
func (t *table) timeField(row []string) model.TimeKey {
	v, err := strconv.ParseInt(strings.TrimSpace(row[t.cols["time"]]), 10, 64)
	if err != nil {
		return model.PrevClose
	}
	return timefmt.Key(v)
}

// floatField 解析数值列
// 数值列解析失败属于数据契约破坏，带行号报错。
func (t *table) floatField(row []string, col string, rowIdx int) (float64, error) {
	raw := strings.TrimSpace(row[t.cols[col]])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("事件表 %s 第 %d 行 %s 列解析失败: %q 不是数值", t.name, rowIdx+2, col, raw)
	}
	return v, nil
}

// stringField 读取字符串列
func (t *table) stringField(row []string, col string) string {
	return strings.TrimSpace(row[t.cols[col]])
}

// loadAlphaTable 加载一张 alpha 信号表（PM/合并/拆分结构相同）
func (l *Loader) loadAlphaTable(file string, phase model.Phase, required bool) ([]model.AlphaEvent, error) {
	t, err := l.readTable(file, required)
	if err != nil || t == nil {
		return nil, err
	}
	if err := t.requireColumns("event", "alphaid", "time", "ticker", "volume"); err != nil {
		return nil, err
	}

	events := make([]model.AlphaEvent, 0, len(t.rows))
	for i, row := range t.rows {
		volume, err := t.floatField(row, "volume", i)
		if err != nil {
			return nil, err
		}
		events = append(events, model.AlphaEvent{
			Phase:         phase,
			ParticipantID: t.stringField(row, "alphaid"),
			Time:          t.timeField(row),
			Ticker:        t.stringField(row, "ticker"),
			TargetVolume:  volume,
		})
	}
	return events, nil
}

// loadPositionTable 加载仓位快照表（SplitCtxEv）
func (l *Loader) loadPositionTable() ([]model.PositionEvent, error) {
	t, err := l.readTable(l.cfg.PositionFile, true)
	if err != nil {
		return nil, err
	}
	if err := t.requireColumns("event", "alphaid", "time", "ticker",
		"realtime_pos", "realtime_long_pos", "realtime_short_pos", "realtime_avail_shot_vol"); err != nil {
		return nil, err
	}

	events := make([]model.PositionEvent, 0, len(t.rows))
	for i, row := range t.rows {
		pos, err := t.floatField(row, "realtime_pos", i)
		if err != nil {
			return nil, err
		}
		longPos, err := t.floatField(row, "realtime_long_pos", i)
		if err != nil {
			return nil, err
		}
		shortPos, err := t.floatField(row, "realtime_short_pos", i)
		if err != nil {
			return nil, err
		}
		availSell, err := t.floatField(row, "realtime_avail_shot_vol", i)
		if err != nil {
			return nil, err
		}
		events = append(events, model.PositionEvent{
			ParticipantID:   t.stringField(row, "alphaid"),
			Time:            t.timeField(row),
			Ticker:          t.stringField(row, "ticker"),
			CurrentPosition: pos,
			LongPosition:    longPos,
			ShortPosition:   shortPos,
			AvailSellVolume: availSell,
		})
	}
	return events, nil
}

// loadMarketTable 加载行情快照表（可选）
func (l *Loader) loadMarketTable() ([]model.MarketEvent, error) {
	t, err := l.readTable(l.cfg.MarketFile, false)
	if err != nil || t == nil {
		return nil, err
	}
	if err := t.requireColumns("event", "alphaid", "time", "ticker",
		"last_price", "prev_close_price"); err != nil {
		return nil, err
	}

	events := make([]model.MarketEvent, 0, len(t.rows))
	for i, row := range t.rows {
		last, err := t.floatField(row, "last_price", i)
		if err != nil {
			return nil, err
		}
		prevClose, err := t.floatField(row, "prev_close_price", i)
		if err != nil {
			return nil, err
		}
		events = append(events, model.MarketEvent{
			Time:           t.timeField(row),
			Ticker:         t.stringField(row, "ticker"),
			LastPrice:      last,
			PrevClosePrice: prevClose,
		})
	}
	return events, nil
}

// loadVirtualPosTable 加载 PM 虚拟仓位表（可选，T+1 校验数据源）
func (l *Loader) loadVirtualPosTable() ([]model.PMVirtualPosition, error) {
	t, err := l.readTable(l.cfg.PMVirtualPosFile, false)
	if err != nil || t == nil {
		return nil, err
	}
	if err := t.requireColumns("time", "ticker", "virtual_position"); err != nil {
		return nil, err
	}

	events := make([]model.PMVirtualPosition, 0, len(t.rows))
	for i, row := range t.rows {
		pos, err := t.floatField(row, "virtual_position", i)
		if err != nil {
			return nil, err
		}
		events = append(events, model.PMVirtualPosition{
			Time:     t.timeField(row),
			Ticker:   t.stringField(row, "ticker"),
			Position: pos,
		})
	}
	return events, nil
}
