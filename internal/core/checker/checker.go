// Package checker 实现流水线规则引擎。
// 每个校验器独立检查一条业务不变式（守恒、非负、取整、方向、T+1 等），
// 输入同一份只读数据快照，互不依赖，可并行执行。
package checker

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"alpha-pipeline-validator/internal/config"
	"alpha-pipeline-validator/internal/core/dataset"
	"alpha-pipeline-validator/internal/core/model"
)

// Checker 校验器接口
// Check 对快照只读，返回单个结果；业务违例通过 FAIL 结果报告，不返回 error。
type Checker interface {
	// Name 校验器名称，用于结果报告
	Name() string
	// Check 对数据快照执行校验
	Check(ds *dataset.Dataset) model.CheckResult
}

// DefaultRegistry 构建静态校验器注册表
// 取代按目录扫描的动态发现：注册表在编译期组合，新增校验器改此处即可。
// 参数 cfg: 校验参数配置
func DefaultRegistry(cfg config.CheckConfig) []Checker {
	return []Checker{
		NewConservationChecker(cfg.Tolerance),
		NewAllocationChecker(cfg.TradersPerGroup),
		NewNonNegativeChecker(cfg.Tolerance),
		NewRoundingChecker(cfg.LotSize, cfg.Tolerance),
		NewDirectionChecker(cfg.Tolerance),
		NewSettlementChecker(cfg.Tolerance),
	}
}

// Runner 校验器执行器
// 将所有校验器扇出到独立 goroutine，单个校验器 panic 只影响自身结果。
type Runner struct {
	// checkers 注册的校验器列表
	checkers []Checker
	// logger 日志器
	logger *zap.Logger
}

// NewRunner 创建校验器执行器
// 参数 checkers: 校验器列表（通常来自 DefaultRegistry）
// 参数 logger: 日志器
func NewRunner(checkers []Checker, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		checkers: checkers,
		logger:   logger,
	}
}

// Run 并行执行全部校验器
// 总是返回与注册表等长、顺序一致的结果切片；
// 单个校验器的 panic 被捕获并转为该校验器的 ERROR 结果，不中断其余校验器。
func (r *Runner) Run(ds *dataset.Dataset) []model.CheckResult {
	results := make([]model.CheckResult, len(r.checkers))

	var wg sync.WaitGroup
	for i, c := range r.checkers {
		wg.Add(1)
		go func(slot int, c Checker) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("校验器异常退出",
						zap.String("checker", c.Name()),
						zap.Any("panic", rec))
					results[slot] = model.CheckResult{
						CheckerName: c.Name(),
						Status:      model.StatusError,
						Message:     fmt.Sprintf("Checker failed: %v", rec),
					}
				}
			}()
			results[slot] = c.Check(ds)
		}(i, c)
	}
	wg.Wait()

	for _, res := range results {
		r.logger.Debug("校验完成",
			zap.String("checker", res.CheckerName),
			zap.String("status", string(res.Status)))
	}

	return results
}
