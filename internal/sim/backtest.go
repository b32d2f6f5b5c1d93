// backtest.go
// Симулятор сделок: серия позиций → сырая торговая статистика.
// Модель одной позиции в терминах портфеля (кэш/актив), вход и выход по
// ценам закрытия, комиссия за каждую сторону. По конвенции вырожденный
// вход (ноль сделок) даёт нулевые/NaN поля, а не ошибку.
package sim

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"sweep/internal"
)

// Config — сквозные настройки симуляции.
type Config struct {
	Direction  internal.Direction
	FeeRate    float64 // комиссия за сторону, доля (0.001 = 0.1%)
	StopLoss   float64 // опциональный стоп-лосс от цены входа, доля; 0 — выключен
	Hourly     bool    // часовые бары вместо дневных
	AlwaysOpen bool    // рынок без торговых сессий
}

// BarsPerYear — конвенция аннуализации, переключается USE_HOURLY.
func (c Config) BarsPerYear() float64 {
	if c.AlwaysOpen {
		if c.Hourly {
			return 365 * 24
		}
		return 365
	}
	if c.Hourly {
		return 252 * 6.5
	}
	return 252
}

// Trade — одна завершённая сделка (вход + выход).
type Trade struct {
	EntryIndex   int     `json:"entry_index"`
	ExitIndex    int     `json:"exit_index"`
	EntryPrice   float64 `json:"entry_price"`
	ExitPrice    float64 `json:"exit_price"`
	Return       float64 `json:"return"` // доля, с учётом комиссий обеих сторон
	DurationBars int     `json:"duration_bars"`
}

// RawTradeStatistics — выход симулятора, вход нормализатора оценок.
type RawTradeStatistics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	BuyAndHoldReturn float64 `json:"buy_and_hold_return"`

	TotalTrades        int     `json:"total_trades"`
	WinRate            float64 `json:"win_rate"`             // доля, NaN без сделок
	ProfitFactor       float64 `json:"profit_factor"`        // Inf без убыточных сделок
	ExpectancyPerTrade float64 `json:"expectancy_per_trade"` // средний результат сделки, %
	AvgWinningTrade    float64 `json:"avg_winning_trade"`    // %
	AvgLosingTrade     float64 `json:"avg_losing_trade"`     // %, отрицательное значение

	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`

	AvgTradeDurationBars float64 `json:"avg_trade_duration_bars"`
	TotalPeriodDays      float64 `json:"total_period_days"`
	OpenTradeAtEnd       bool    `json:"open_trade_at_end"`
}

// Backtest прогоняет серию позиций по барам. Позиции приходят уже с
// однобарным лагом от машины состояний, симулятор их не сдвигает.
func Backtest(candles []internal.Candle, signals internal.SignalSeries, cfg Config) RawTradeStatistics {
	n := len(candles)
	if len(signals) < n {
		n = len(signals)
	}
	if n < 2 {
		return emptyStats()
	}

	want := cfg.Direction.Sign()
	sign := float64(want)

	equity := 1.0
	peak := 1.0
	maxDD := 0.0

	inPos := false
	entryPrice := 0.0
	entryIndex := 0
	stopped := false // стоп-лосс сработал, ждём разворота сигнала в flat

	var trades []Trade
	barRets := make([]float64, 0, n)

	closeTrade := func(i int, price float64) {
		ret := sign*(price/entryPrice-1) - 2*cfg.FeeRate
		trades = append(trades, Trade{
			EntryIndex:   entryIndex,
			ExitIndex:    i,
			EntryPrice:   entryPrice,
			ExitPrice:    price,
			Return:       ret,
			DurationBars: i - entryIndex,
		})
		inPos = false
	}

	for i := 1; i < n; i++ {
		price := candles[i].Close.ToFloat64()
		prevPrice := candles[i-1].Close.ToFloat64()

		barRet := 0.0
		if inPos && prevPrice > 0 {
			barRet = sign * (price/prevPrice - 1)
		}

		wantPos := signals[i].Position == want

		switch {
		case inPos && cfg.StopLoss > 0 && sign*(price/entryPrice-1) <= -cfg.StopLoss:
			// Принудительный выход по стоп-лоссу; повторный вход только
			// после того, как сигнальная серия сама побывает в flat
			closeTrade(i, price)
			equity *= 1 + barRet
			equity *= 1 - cfg.FeeRate
			stopped = true
			barRets = append(barRets, barRet)
			continue

		case inPos && !wantPos:
			closeTrade(i, price)
			equity *= 1 + barRet
			equity *= 1 - cfg.FeeRate
			barRets = append(barRets, barRet)

		case !inPos && wantPos && !stopped:
			inPos = true
			entryPrice = price
			entryIndex = i
			equity *= 1 - cfg.FeeRate
			barRets = append(barRets, 0)

		default:
			if !wantPos {
				stopped = false
			}
			equity *= 1 + barRet
			barRets = append(barRets, barRet)
		}

		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}

	openAtEnd := inPos

	stats := RawTradeStatistics{
		TotalReturn:      equity - 1,
		MaxDrawdown:      maxDD,
		TotalTrades:      len(trades),
		OpenTradeAtEnd:   openAtEnd,
		BuyAndHoldReturn: buyAndHold(candles[:n]),
		TotalPeriodDays:  periodDays(candles[:n], cfg),
	}

	fillTradeStats(&stats, trades)
	fillRatios(&stats, barRets, cfg)

	if stats.TotalPeriodDays > 0 {
		stats.AnnualizedReturn = math.Pow(1+stats.TotalReturn, 365/stats.TotalPeriodDays) - 1
	}

	return stats
}

func emptyStats() RawTradeStatistics {
	return RawTradeStatistics{
		WinRate:            math.NaN(),
		ProfitFactor:       math.NaN(),
		ExpectancyPerTrade: math.NaN(),
		AvgWinningTrade:    math.NaN(),
		AvgLosingTrade:     math.NaN(),
	}
}

func fillTradeStats(stats *RawTradeStatistics, trades []Trade) {
	if len(trades) == 0 {
		stats.WinRate = math.NaN()
		stats.ProfitFactor = math.NaN()
		stats.ExpectancyPerTrade = math.NaN()
		stats.AvgWinningTrade = math.NaN()
		stats.AvgLosingTrade = math.NaN()
		return
	}

	rets := make([]float64, len(trades))
	var wins, losses []float64
	grossProfit, grossLoss := 0.0, 0.0
	totalDuration := 0

	for i, t := range trades {
		rets[i] = t.Return
		totalDuration += t.DurationBars
		if t.Return > 0 {
			wins = append(wins, t.Return*100)
			grossProfit += t.Return
		} else {
			losses = append(losses, t.Return*100)
			grossLoss += -t.Return
		}
	}

	stats.WinRate = float64(len(wins)) / float64(len(trades))
	stats.ExpectancyPerTrade = stat.Mean(rets, nil) * 100
	stats.AvgTradeDurationBars = float64(totalDuration) / float64(len(trades))

	if grossLoss > 0 {
		stats.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		stats.ProfitFactor = math.Inf(1) // ни одного убытка — вырожденная симуляция
	} else {
		stats.ProfitFactor = math.NaN()
	}

	if len(wins) > 0 {
		stats.AvgWinningTrade = stat.Mean(wins, nil)
	} else {
		stats.AvgWinningTrade = math.NaN()
	}
	if len(losses) > 0 {
		stats.AvgLosingTrade = stat.Mean(losses, nil)
	} else {
		stats.AvgLosingTrade = math.NaN()
	}
}

func fillRatios(stats *RawTradeStatistics, barRets []float64, cfg Config) {
	if len(barRets) < 2 {
		return
	}

	mean := stat.Mean(barRets, nil)
	sd := stat.StdDev(barRets, nil)
	ann := math.Sqrt(cfg.BarsPerYear())

	if sd > 0 {
		stats.SharpeRatio = mean / sd * ann
	}

	// Downside deviation: только отрицательные бары, против нулевого порога
	downSq := 0.0
	for _, r := range barRets {
		if r < 0 {
			downSq += r * r
		}
	}
	downside := math.Sqrt(downSq / float64(len(barRets)))
	if downside > 0 {
		stats.SortinoRatio = mean / downside * ann
	}
}

func buyAndHold(candles []internal.Candle) float64 {
	first := candles[0].Close.ToFloat64()
	last := candles[len(candles)-1].Close.ToFloat64()
	if first <= 0 {
		return 0
	}
	return last/first - 1
}

// periodDays — календарная длина серии; без валидных дат оценивается по
// числу баров и конвенции (дневные/часовые, сессии/круглосуточно).
func periodDays(candles []internal.Candle, cfg Config) float64 {
	first := candles[0].ToTime()
	last := candles[len(candles)-1].ToTime()
	if !first.IsZero() && !last.IsZero() && last.After(first) {
		return last.Sub(first).Hours() / 24
	}

	barsPerDay := 1.0
	if cfg.Hourly {
		barsPerDay = 6.5
		if cfg.AlwaysOpen {
			barsPerDay = 24
		}
	}
	return float64(len(candles)) / barsPerDay
}
