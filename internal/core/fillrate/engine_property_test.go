// Package fillrate 成交率引擎属性测试
package fillrate

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"alpha-pipeline-validator/internal/core/dataset"
	"alpha-pipeline-validator/internal/core/model"
)

func TestEngine_FillRate_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("成交率 = 实际交易量 / 意图交易量", prop.ForAll(
		func(pos float64, intended float64, fill float64) bool {
			target := pos + intended
			posAfter := pos + intended*fill

			splits := []model.AlphaEvent{
				split("TRADER_001", 930000000, "000001.SZE", target),
				split("TRADER_001", 940000000, "000001.SZE", posAfter),
			}
			positions := []model.PositionEvent{
				snap("TRADER_001", 930000000, "000001.SZE", pos),
				snap("TRADER_001", 940000000, "000001.SZE", posAfter),
			}

			e := NewEngine(dataset.New(nil, nil, splits, positions, nil, nil), testTol)
			trades := e.Trades()
			if len(trades) != 1 {
				return false
			}
			first := trades[0]
			if !first.Analyzable {
				return false
			}
			return math.Abs(first.FillRate-fill) < 1e-9
		},
		gen.Float64Range(0, 1e5),
		gen.Float64Range(100, 1e5),
		gen.Float64Range(0, 1),
	))

	properties.Property("零意图交易不计入聚合", prop.ForAll(
		func(pos float64, drift float64) bool {
			splits := []model.AlphaEvent{
				split("TRADER_001", 930000000, "000001.SZE", pos),
				split("TRADER_001", 940000000, "000001.SZE", pos+drift),
			}
			positions := []model.PositionEvent{
				snap("TRADER_001", 930000000, "000001.SZE", pos),
				snap("TRADER_001", 940000000, "000001.SZE", pos+drift),
			}

			e := NewEngine(dataset.New(nil, nil, splits, positions, nil, nil), testTol)
			trades := e.Trades()
			if len(trades) != 1 {
				return false
			}
			first := trades[0]
			return !first.Analyzable && first.FillRate == 0
		},
		gen.Float64Range(0, 1e5),
		gen.Float64Range(-1000, 1000),
	))

	properties.TestingRun(t)
}
