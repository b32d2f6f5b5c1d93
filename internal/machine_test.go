package internal

import (
	"testing"

	"github.com/pkg/errors"
)

func closesToCandles(closes ...float64) []Candle {
	candles := make([]Candle, len(closes))
	for i, c := range closes {
		candles[i] = Candle{
			Open:  Price(c),
			High:  Price(c + 1),
			Low:   Price(c - 1),
			Close: Price(c),
		}
	}
	return candles
}

func longEntries(n int) SignalSeries {
	series := make(SignalSeries, n)
	for i := range series {
		series[i] = SignalPoint{Signal: Long, Position: Long}
	}
	return series
}

func constATR(n int, v float64) []float64 {
	atr := make([]float64, n)
	for i := range atr {
		atr[i] = v
	}
	return atr
}

func TestMACrossSignals_PositionLagsSignal(t *testing.T) {
	fast := []float64{1, 3, 3, 1, 1}
	slow := []float64{2, 2, 2, 2, 2}

	series := MACrossSignals(fast, slow, 0, DirectionLong)

	wantSignals := []Signal{None, Long, Long, None, None}
	for i, want := range wantSignals {
		if series[i].Signal != want {
			t.Errorf("signal[%d] = %v, want %v", i, series[i].Signal, want)
		}
	}

	// Позиция — сигнал предыдущего бара
	if series[0].Position != None {
		t.Errorf("position[0] must be None, got %v", series[0].Position)
	}
	for i := 1; i < len(series); i++ {
		if series[i].Position != series[i-1].Signal {
			t.Errorf("position[%d] = %v, want signal[%d] = %v",
				i, series[i].Position, i-1, series[i-1].Signal)
		}
	}
}

func TestMACrossSignals_ShortMirrorsComparison(t *testing.T) {
	fast := []float64{3, 1, 1, 3}
	slow := []float64{2, 2, 2, 2}

	series := MACrossSignals(fast, slow, 0, DirectionShort)

	wantSignals := []Signal{None, Short, Short, None}
	for i, want := range wantSignals {
		if series[i].Signal != want {
			t.Errorf("signal[%d] = %v, want %v", i, series[i].Signal, want)
		}
	}
}

func TestGenerateSignals_UnknownKindIsConfigurationError(t *testing.T) {
	candles := closesToCandles(100, 101, 102, 103, 104, 105, 106, 107, 108, 109)
	_, err := GenerateSignals(candles, StrategyParams{Kind: StrategyKind(99), Fast: 2, Slow: 3}, DirectionLong)

	if !IsConfiguration(err) {
		t.Errorf("Expected ConfigurationError for unknown kind, got %v", err)
	}
}

func TestGenerateSignals_ShortSeriesIsInsufficientData(t *testing.T) {
	candles := closesToCandles(100, 101, 102)
	_, err := GenerateSignals(candles, StrategyParams{Kind: KindSMA, Fast: 2, Slow: 10}, DirectionLong)

	if !IsInsufficientData(err) {
		t.Errorf("Expected InsufficientDataError, got %v", err)
	}
}

func TestApplyATRTrailingStop_RatchetNeverLoosens(t *testing.T) {
	// Вход на 100 (стоп 98), рост до 110 подтягивает стоп до 108.
	// Откат до 107 выше исходного стопа, но ниже подтянутого: выход.
	candles := closesToCandles(100, 110, 107)
	entry := longEntries(3)
	atr := constATR(3, 1)

	series, _ := ApplyATRTrailingStop(candles, entry, atr, 2.0, DirectionLong)

	if series[0].Position != Long || series[1].Position != Long {
		t.Errorf("Expected open position on bars 0-1, got %v %v", series[0].Position, series[1].Position)
	}
	if series[2].Position != None {
		t.Errorf("Ratcheted stop must force an exit on bar 2, got %v", series[2].Position)
	}
}

func TestApplyATRTrailingStop_ReentryStartsFresh(t *testing.T) {
	// После выхода на баре 2 состояние сброшено: повторный вход на баре 3
	// получает свежий стоп от новой цены, а не остаток старого
	candles := closesToCandles(100, 110, 107, 107, 106)
	entry := longEntries(5)
	atr := constATR(5, 1)

	series, _ := ApplyATRTrailingStop(candles, entry, atr, 2.0, DirectionLong)

	if series[2].Position != None {
		t.Fatalf("Expected exit on bar 2, got %v", series[2].Position)
	}
	if series[3].Position != Long {
		t.Errorf("Expected re-entry on bar 3, got %v", series[3].Position)
	}
	// Новый стоп 105: цена 106 выше, позиция держится
	if series[4].Position != Long {
		t.Errorf("Expected position to survive bar 4 above the fresh stop, got %v", series[4].Position)
	}
}

func TestApplyATRTrailingStop_ShortMirrors(t *testing.T) {
	// Короткая позиция: вход на 100 (стоп 102), падение до 90 тянет стоп
	// до 92, отскок до 93 пересекает стоп — выход
	candles := closesToCandles(100, 90, 93)
	entry := make(SignalSeries, 3)
	for i := range entry {
		entry[i] = SignalPoint{Signal: Short, Position: Short}
	}
	atr := constATR(3, 1)

	series, _ := ApplyATRTrailingStop(candles, entry, atr, 2.0, DirectionShort)

	if series[0].Position != Short || series[1].Position != Short {
		t.Errorf("Expected short position on bars 0-1, got %v %v", series[0].Position, series[1].Position)
	}
	if series[2].Position != None {
		t.Errorf("Expected stop-out on bar 2, got %v", series[2].Position)
	}
}

func TestApplyATRTrailingStop_ZeroATRIsDegenerate(t *testing.T) {
	candles := closesToCandles(100, 100, 100)
	entry := longEntries(3)

	_, degenerate := ApplyATRTrailingStop(candles, entry, constATR(3, 0), 2.0, DirectionLong)
	if !degenerate {
		t.Errorf("Zero ATR puts the stop on the price: combination must flag as degenerate")
	}

	_, ok := ApplyATRTrailingStop(candles, entry, constATR(3, 1), 2.0, DirectionLong)
	if ok {
		t.Errorf("Positive ATR with the stop below price must not flag as degenerate")
	}
}

func TestGenerateSignals_DegenerateATRCombinationErrors(t *testing.T) {
	// Плоская серия: нулевой ATR на каждом баре
	candles := make([]Candle, 60)
	for i := range candles {
		candles[i] = Candle{Open: Price(100), High: Price(100), Low: Price(100), Close: Price(100)}
	}

	p := StrategyParams{Kind: KindSMAWithATR, Fast: 3, Slow: 8, ATRLength: 5, ATRMultiplier: 2.0}
	_, err := GenerateSignals(candles, p, DirectionLong)

	if !errors.Is(err, ErrDegenerateStop) {
		t.Errorf("Expected ErrDegenerateStop on a flat series, got %v", err)
	}
}

func TestGenerateSignals_MACDNeedsSignalPeriod(t *testing.T) {
	candles := closesToCandles(100, 101, 102, 103, 104, 105, 106, 107, 108, 109)
	p := StrategyParams{Kind: KindMACD, Fast: 2, Slow: 4}

	if _, err := GenerateSignals(candles, p, DirectionLong); !IsConfiguration(err) {
		t.Errorf("MACD without a signal period must fail validation, got %v", err)
	}
}
