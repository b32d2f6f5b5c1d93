// grid.go
// Границы сетки перебора и её перечисление. Сетка описывает диапазоны,
// комбинации из неё порождаются лениво: пары окон — общим генератором,
// вариантные измерения (signal period, ATR) — своими списками.
package sweep

import (
	"github.com/samber/lo"

	"sweep/internal"
)

// Grid — границы пространства перебора. Интервалы включительные,
// Step — шаг опции STEP.
type Grid struct {
	FastFrom int `json:"fast_from" yaml:"fast_from"`
	FastTo   int `json:"fast_to" yaml:"fast_to"`
	SlowFrom int `json:"slow_from" yaml:"slow_from"`
	SlowTo   int `json:"slow_to" yaml:"slow_to"`
	Step     int `json:"step" yaml:"step"`

	// только MACD
	SignalPeriods []int `json:"signal_periods,omitempty" yaml:"signal_periods,omitempty"`
	RSIPeriod     int   `json:"rsi_period,omitempty" yaml:"rsi_period,omitempty"`

	// только SMA_ATR
	ATRLengths     []int     `json:"atr_lengths,omitempty" yaml:"atr_lengths,omitempty"`
	ATRMultipliers []float64 `json:"atr_multipliers,omitempty" yaml:"atr_multipliers,omitempty"`
}

// DefaultGrid — рабочая сетка по умолчанию: быстрые окна 5..45,
// медленные 50..190.
func DefaultGrid() Grid {
	return Grid{
		FastFrom:       5,
		FastTo:         45,
		SlowFrom:       50,
		SlowTo:         190,
		Step:           5,
		SignalPeriods:  []int{7, 9, 12},
		ATRLengths:     []int{7, 14, 21},
		ATRMultipliers: []float64{1.5, 2.0, 2.5, 3.0},
	}
}

func (g Grid) Validate() error {
	if g.Step <= 0 {
		return internal.NewConfigurationErrorf("grid step must be positive, got %d", g.Step)
	}
	if g.FastFrom <= 0 || g.SlowFrom <= 0 {
		return internal.NewConfigurationErrorf("grid bounds must be positive")
	}
	if g.FastFrom > g.FastTo || g.SlowFrom > g.SlowTo {
		return internal.NewConfigurationErrorf("grid bounds inverted: fast %d..%d slow %d..%d",
			g.FastFrom, g.FastTo, g.SlowFrom, g.SlowTo)
	}
	for _, m := range g.ATRMultipliers {
		if m <= 0 {
			return internal.NewConfigurationErrorf("atr multiplier must be positive, got %.4f", m)
		}
	}
	for _, l := range g.ATRLengths {
		if l <= 0 {
			return internal.NewConfigurationErrorf("atr length must be positive, got %d", l)
		}
	}
	for _, p := range g.SignalPeriods {
		if p <= 0 {
			return internal.NewConfigurationErrorf("signal period must be positive, got %d", p)
		}
	}
	return nil
}

// FastPeriods перечисляет быстрые окна сетки.
func (g Grid) FastPeriods() []int {
	return lo.RangeWithSteps(g.FastFrom, g.FastTo+1, g.Step)
}

// SlowPeriods перечисляет медленные окна сетки.
func (g Grid) SlowPeriods() []int {
	return lo.RangeWithSteps(g.SlowFrom, g.SlowTo+1, g.Step)
}

// Pairs — все валидные пары окон (fast < slow).
func (g Grid) Pairs() []lo.Tuple2[int, int] {
	slows := g.SlowPeriods()
	return lo.FlatMap(g.FastPeriods(), func(fast int, _ int) []lo.Tuple2[int, int] {
		valid := lo.Filter(slows, func(slow int, _ int) bool {
			return fast < slow
		})
		return lo.Map(valid, func(slow int, _ int) lo.Tuple2[int, int] {
			return lo.T2(fast, slow)
		})
	})
}

// Combinations — плоский список комбинаций варианта. Для SMA_ATR
// оркестратор перебирает измерения вложенными циклами поверх Pairs,
// поэтому плоский список здесь не порождается.
func (g Grid) Combinations(kind internal.StrategyKind) []internal.StrategyParams {
	pairs := g.Pairs()

	switch kind {
	case internal.KindSMA, internal.KindEMA:
		return lo.Map(pairs, func(p lo.Tuple2[int, int], _ int) internal.StrategyParams {
			return internal.StrategyParams{Kind: kind, Fast: p.A, Slow: p.B}
		})

	case internal.KindMACD:
		return lo.FlatMap(pairs, func(p lo.Tuple2[int, int], _ int) []internal.StrategyParams {
			return lo.Map(g.SignalPeriods, func(sp int, _ int) internal.StrategyParams {
				return internal.StrategyParams{
					Kind:         internal.KindMACD,
					Fast:         p.A,
					Slow:         p.B,
					SignalPeriod: sp,
					RSIPeriod:    g.RSIPeriod,
				}
			})
		})

	default:
		return nil
	}
}

// Size — полное число комбинаций варианта, для прогресса и метрик.
func (g Grid) Size(kind internal.StrategyKind) int {
	pairs := len(g.Pairs())
	switch kind {
	case internal.KindMACD:
		return pairs * len(g.SignalPeriods)
	case internal.KindSMAWithATR:
		return pairs * len(g.ATRLengths) * len(g.ATRMultipliers)
	default:
		return pairs
	}
}
