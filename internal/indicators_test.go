package internal

import (
	"math"
	"testing"
)

func TestCalculateSMA_KnownValues(t *testing.T) {
	candles := closesToCandles(1, 2, 3, 4, 5)

	sma, err := CalculateSMA(candles, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Warmup-значения нулевые
	if sma[0] != 0 || sma[1] != 0 {
		t.Errorf("Expected zero warmup values, got %.4f %.4f", sma[0], sma[1])
	}

	want := []float64{0, 0, 2, 3, 4}
	for i := 2; i < len(want); i++ {
		if math.Abs(sma[i]-want[i]) > 1e-9 {
			t.Errorf("sma[%d] = %.4f, want %.4f", i, sma[i], want[i])
		}
	}
}

func TestCalculateEMA_SeedsWithSMA(t *testing.T) {
	candles := closesToCandles(2, 4, 6, 8)

	ema, err := CalculateEMA(candles, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Первое значение EMA — простое среднее первых трёх цен
	if math.Abs(ema[2]-4.0) > 1e-9 {
		t.Errorf("ema[2] = %.4f, want 4.0", ema[2])
	}
	// multiplier = 2/(3+1) = 0.5: ema[3] = 8*0.5 + 4*0.5
	if math.Abs(ema[3]-6.0) > 1e-9 {
		t.Errorf("ema[3] = %.4f, want 6.0", ema[3])
	}
}

func TestCalculateATR_ConstantRange(t *testing.T) {
	// Диапазон каждого бара 2, цены закрытия постоянны: TR = 2 везде
	candles := make([]Candle, 10)
	for i := range candles {
		candles[i] = Candle{Open: Price(100), High: Price(101), Low: Price(99), Close: Price(100)}
	}

	atr, err := CalculateATR(candles, 4)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for i := 0; i < 4; i++ {
		if atr[i] != 0 {
			t.Errorf("atr[%d] must be zero during warmup, got %.4f", i, atr[i])
		}
	}
	for i := 4; i < len(atr); i++ {
		if math.Abs(atr[i]-2.0) > 1e-9 {
			t.Errorf("atr[%d] = %.4f, want 2.0", i, atr[i])
		}
	}
}

func TestCalculateATR_WilderSmoothing(t *testing.T) {
	// Скачок диапазона на последнем баре: сглаживание Уайлдера
	// подмешивает новый TR с весом 1/period
	candles := make([]Candle, 6)
	for i := range candles {
		candles[i] = Candle{Open: Price(100), High: Price(101), Low: Price(99), Close: Price(100)}
	}
	candles[5] = Candle{Open: Price(100), High: Price(105), Low: Price(95), Close: Price(100)}

	atr, err := CalculateATR(candles, 4)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// atr[5] = (2*3 + 10) / 4 = 4
	if math.Abs(atr[5]-4.0) > 1e-9 {
		t.Errorf("atr[5] = %.4f, want 4.0", atr[5])
	}
}

func TestCalculateRSI_Extremes(t *testing.T) {
	up := closesToCandles(1, 2, 3, 4, 5, 6)
	rsi, err := CalculateRSI(up, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rsi[5] != 100 {
		t.Errorf("All-gains series must give RSI 100, got %.4f", rsi[5])
	}

	down := closesToCandles(6, 5, 4, 3, 2, 1)
	rsi, err = CalculateRSI(down, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rsi[5] != 0 {
		t.Errorf("All-losses series must give RSI 0, got %.4f", rsi[5])
	}
}

func TestCalculateMACDWithSignal_Alignment(t *testing.T) {
	candles := closesToCandles(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)

	macd, signal, histogram, err := CalculateMACDWithSignal(candles, 3, 6, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(macd) != len(candles) || len(signal) != len(candles) || len(histogram) != len(candles) {
		t.Fatalf("All series must align with the candle count")
	}
	for i := range candles {
		if math.Abs(histogram[i]-(macd[i]-signal[i])) > 1e-9 {
			t.Errorf("histogram[%d] must equal macd-signal", i)
		}
	}
}

func TestIndicators_InsufficientData(t *testing.T) {
	short := closesToCandles(1, 2)

	if _, err := CalculateSMA(short, 5); !IsInsufficientData(err) {
		t.Errorf("Expected InsufficientDataError from SMA, got %v", err)
	}
	if _, err := CalculateATR(short, 5); !IsInsufficientData(err) {
		t.Errorf("Expected InsufficientDataError from ATR, got %v", err)
	}
	if _, _, _, err := CalculateMACDWithSignal(short, 2, 3, 2); !IsInsufficientData(err) {
		t.Errorf("Expected InsufficientDataError from MACD, got %v", err)
	}
	if _, err := CalculateRSI(short, 5); !IsInsufficientData(err) {
		t.Errorf("Expected InsufficientDataError from RSI, got %v", err)
	}
}
