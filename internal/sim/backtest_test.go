package sim

import (
	"math"
	"testing"

	"sweep/internal"
)

// positionSeries строит серию из готовых позиций; сигналы для симулятора
// не важны, он читает только Position.
func positionSeries(positions ...internal.Signal) internal.SignalSeries {
	series := make(internal.SignalSeries, len(positions))
	for i, p := range positions {
		series[i] = internal.SignalPoint{Position: p}
	}
	return series
}

func priceCandles(closes ...float64) []internal.Candle {
	candles := make([]internal.Candle, len(closes))
	for i, c := range closes {
		candles[i] = internal.Candle{Close: internal.Price(c)}
	}
	return candles
}

func TestBacktest_TradeCountIsClosedEpisodes(t *testing.T) {
	candles := priceCandles(100, 105, 110, 108, 112, 115)

	// Вход-выход-вход без выхода = 1 закрытая сделка + открытая на конце
	series := positionSeries(0, 1, 1, 0, 1, 1)
	stats := Backtest(candles, series, Config{Direction: internal.DirectionLong})

	if stats.TotalTrades != 1 {
		t.Errorf("Expected 1 closed trade, got %d", stats.TotalTrades)
	}
	if !stats.OpenTradeAtEnd {
		t.Errorf("Expected open trade at end")
	}

	// Два полных эпизода
	series2 := positionSeries(0, 1, 0, 1, 0, 0)
	stats2 := Backtest(candles, series2, Config{Direction: internal.DirectionLong})

	if stats2.TotalTrades != 2 {
		t.Errorf("Expected 2 closed trades, got %d", stats2.TotalTrades)
	}
	if stats2.OpenTradeAtEnd {
		t.Errorf("Expected no open trade at end")
	}
}

func TestBacktest_ReturnWithoutFees(t *testing.T) {
	candles := priceCandles(100, 100, 110, 121, 121)
	series := positionSeries(0, 1, 1, 1, 0)

	stats := Backtest(candles, series, Config{Direction: internal.DirectionLong})

	if math.Abs(stats.TotalReturn-0.21) > 1e-9 {
		t.Errorf("Expected total return 0.21, got %.6f", stats.TotalReturn)
	}
	if math.Abs(stats.BuyAndHoldReturn-0.21) > 1e-9 {
		t.Errorf("Expected buy&hold 0.21, got %.6f", stats.BuyAndHoldReturn)
	}
	if stats.TotalTrades != 1 {
		t.Errorf("Expected 1 trade, got %d", stats.TotalTrades)
	}
	if math.Abs(stats.ExpectancyPerTrade-21.0) > 1e-9 {
		t.Errorf("Expected expectancy 21%%, got %.6f", stats.ExpectancyPerTrade)
	}
	if stats.WinRate != 1.0 {
		t.Errorf("Expected win rate 1.0, got %.4f", stats.WinRate)
	}
	// Без убыточных сделок profit factor вырождается в бесконечность
	if !math.IsInf(stats.ProfitFactor, 1) {
		t.Errorf("Expected +Inf profit factor, got %.4f", stats.ProfitFactor)
	}
}

func TestBacktest_FeesReduceReturn(t *testing.T) {
	candles := priceCandles(100, 100, 110, 121, 121)
	series := positionSeries(0, 1, 1, 1, 0)

	free := Backtest(candles, series, Config{Direction: internal.DirectionLong})
	paid := Backtest(candles, series, Config{Direction: internal.DirectionLong, FeeRate: 0.01})

	if paid.TotalReturn >= free.TotalReturn {
		t.Errorf("Fees must reduce return: free=%.6f paid=%.6f", free.TotalReturn, paid.TotalReturn)
	}
	// Результат сделки учитывает комиссию обеих сторон
	if math.Abs(paid.ExpectancyPerTrade-19.0) > 1e-9 {
		t.Errorf("Expected expectancy 19%% with 1%% fee per side, got %.6f", paid.ExpectancyPerTrade)
	}
}

func TestBacktest_ShortDirectionMirrors(t *testing.T) {
	candles := priceCandles(100, 100, 90, 81, 81)
	series := positionSeries(0, -1, -1, -1, 0)

	stats := Backtest(candles, series, Config{Direction: internal.DirectionShort})

	// Падение цены — прибыль короткой позиции
	if stats.TotalReturn <= 0 {
		t.Errorf("Expected positive return on falling prices, got %.6f", stats.TotalReturn)
	}
	if stats.TotalTrades != 1 {
		t.Errorf("Expected 1 trade, got %d", stats.TotalTrades)
	}
	if math.Abs(stats.ExpectancyPerTrade-19.0) > 1e-9 {
		t.Errorf("Expected short trade return 19%%, got %.6f", stats.ExpectancyPerTrade)
	}
}

func TestBacktest_ZeroTradesGivesNaNMetrics(t *testing.T) {
	candles := priceCandles(100, 105, 110, 108)
	series := positionSeries(0, 0, 0, 0)

	stats := Backtest(candles, series, Config{Direction: internal.DirectionLong})

	if stats.TotalTrades != 0 {
		t.Errorf("Expected 0 trades, got %d", stats.TotalTrades)
	}
	if stats.TotalReturn != 0 {
		t.Errorf("Expected zero total return, got %.6f", stats.TotalReturn)
	}
	if !math.IsNaN(stats.WinRate) {
		t.Errorf("Expected NaN win rate without trades, got %.4f", stats.WinRate)
	}
	if !math.IsNaN(stats.ExpectancyPerTrade) {
		t.Errorf("Expected NaN expectancy without trades, got %.4f", stats.ExpectancyPerTrade)
	}
}

func TestBacktest_StopLossForcesExitAndBlocksReentry(t *testing.T) {
	candles := priceCandles(100, 100, 94, 90, 100, 120)
	series := positionSeries(0, 1, 1, 1, 1, 1)

	stats := Backtest(candles, series, Config{
		Direction: internal.DirectionLong,
		StopLoss:  0.05,
	})

	// Выход на просадке 6%, повторного входа нет, пока серия не побывает в flat
	if stats.TotalTrades != 1 {
		t.Errorf("Expected 1 stopped-out trade, got %d", stats.TotalTrades)
	}
	if stats.OpenTradeAtEnd {
		t.Errorf("Expected no open trade after stop-loss")
	}
	if stats.TotalReturn >= 0 {
		t.Errorf("Expected negative return after stop-loss, got %.6f", stats.TotalReturn)
	}
}

func TestBacktest_MaxDrawdownTracksPeak(t *testing.T) {
	candles := priceCandles(100, 100, 120, 90, 90)
	series := positionSeries(0, 1, 1, 1, 0)

	stats := Backtest(candles, series, Config{Direction: internal.DirectionLong})

	// Пик 1.2, дно 0.9: просадка 25%
	if math.Abs(stats.MaxDrawdown-0.25) > 1e-9 {
		t.Errorf("Expected max drawdown 0.25, got %.6f", stats.MaxDrawdown)
	}
}

func TestConfig_BarsPerYear(t *testing.T) {
	cases := []struct {
		cfg  Config
		want float64
	}{
		{Config{}, 252},
		{Config{Hourly: true}, 252 * 6.5},
		{Config{AlwaysOpen: true}, 365},
		{Config{AlwaysOpen: true, Hourly: true}, 365 * 24},
	}
	for _, c := range cases {
		if got := c.cfg.BarsPerYear(); got != c.want {
			t.Errorf("BarsPerYear(hourly=%v, alwaysOpen=%v) = %.1f, want %.1f",
				c.cfg.Hourly, c.cfg.AlwaysOpen, got, c.want)
		}
	}
}
