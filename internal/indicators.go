// indicators.go
// Расчёт индикаторных серий. Все серии выровнены 1:1 с барами; значения
// до окончания warmup-окна равны нулю. Серия короче требуемого lookback
// даёт InsufficientDataError — комбинация пропускается выше по стеку.
package internal

import (
	"math"
)

// CalculateSMA вычисляет простую скользящую среднюю по ценам закрытия.
func CalculateSMA(candles []Candle, period int) ([]float64, error) {
	if period <= 0 {
		return nil, NewConfigurationErrorf("sma period must be positive, got %d", period)
	}
	if len(candles) < period {
		return nil, NewInsufficientDataError(period, len(candles))
	}
	return CalculateSMAForValues(ClosePrices(candles), period)
}

// CalculateSMAForValues вычисляет SMA для произвольного ряда значений.
func CalculateSMAForValues(values []float64, period int) ([]float64, error) {
	if len(values) < period {
		return nil, NewInsufficientDataError(period, len(values))
	}

	sma := make([]float64, len(values))

	// Скользящая сумма вместо вложенного цикла: внутренний цикл перебора
	// вызывает расчёт тысячи раз на тикер.
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	sma[period-1] = sum / float64(period)
	for i := period; i < len(values); i++ {
		sum += values[i] - values[i-period]
		sma[i] = sum / float64(period)
	}

	return sma, nil
}

// CalculateEMAForValues вычисляет экспоненциальную скользящую среднюю.
// Первые period значений сворачиваются в SMA как начальное значение.
func CalculateEMAForValues(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, NewConfigurationErrorf("ema period must be positive, got %d", period)
	}
	if len(values) < period {
		return nil, NewInsufficientDataError(period, len(values))
	}

	ema := make([]float64, len(values))
	multiplier := 2.0 / (float64(period) + 1.0)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < len(values); i++ {
		ema[i] = (values[i] * multiplier) + (ema[i-1] * (1 - multiplier))
	}

	return ema, nil
}

// CalculateEMA вычисляет EMA по ценам закрытия.
func CalculateEMA(candles []Candle, period int) ([]float64, error) {
	return CalculateEMAForValues(ClosePrices(candles), period)
}

// CalculateMACDWithSignal вычисляет линию MACD, сигнальную линию и гистограмму.
func CalculateMACDWithSignal(candles []Candle, fastPeriod, slowPeriod, signalPeriod int) ([]float64, []float64, []float64, error) {
	if len(candles) < slowPeriod+signalPeriod {
		return nil, nil, nil, NewInsufficientDataError(slowPeriod+signalPeriod, len(candles))
	}

	prices := ClosePrices(candles)

	fastEMA, err := CalculateEMAForValues(prices, fastPeriod)
	if err != nil {
		return nil, nil, nil, err
	}
	slowEMA, err := CalculateEMAForValues(prices, slowPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	macdLine := make([]float64, len(candles))
	for i := range candles {
		if fastEMA[i] == 0 || slowEMA[i] == 0 {
			macdLine[i] = 0
		} else {
			macdLine[i] = fastEMA[i] - slowEMA[i]
		}
	}

	signalLine, err := CalculateEMAForValues(macdLine, signalPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	histogram := make([]float64, len(candles))
	for i := range candles {
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return macdLine, signalLine, histogram, nil
}

// CalculateATR рассчитывает Average True Range со сглаживанием Уайлдера.
// Первые period+1 значений равны нулю, atr[period] — простое среднее TR.
func CalculateATR(candles []Candle, period int) ([]float64, error) {
	if period <= 0 {
		return nil, NewConfigurationErrorf("atr period must be positive, got %d", period)
	}
	if len(candles) < period+1 {
		return nil, NewInsufficientDataError(period+1, len(candles))
	}

	atr := make([]float64, len(candles))

	// Первое ATR — простое среднее истинных диапазонов
	sum := 0.0
	for i := 1; i < period+1; i++ {
		sum += trueRange(candles[i], candles[i-1])
	}
	atr[period] = sum / float64(period)

	for i := period + 1; i < len(candles); i++ {
		tr := trueRange(candles[i], candles[i-1])
		atr[i] = (atr[i-1]*float64(period-1) + tr) / float64(period)
	}

	return atr, nil
}

func trueRange(c, prev Candle) float64 {
	high := c.High.ToFloat64()
	low := c.Low.ToFloat64()
	prevClose := prev.Close.ToFloat64()
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// CalculateRSI вычисляет RSI по ценам закрытия.
func CalculateRSI(candles []Candle, period int) ([]float64, error) {
	if period <= 0 {
		return nil, NewConfigurationErrorf("rsi period must be positive, got %d", period)
	}
	if len(candles) < period+1 {
		return nil, NewInsufficientDataError(period+1, len(candles))
	}

	rsi := make([]float64, len(candles))

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := candles[i].Close.ToFloat64() - candles[i-1].Close.ToFloat64()
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	rsi[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(candles); i++ {
		change := candles[i].Close.ToFloat64() - candles[i-1].Close.ToFloat64()
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)

		rsi[i] = rsiValue(avgGain, avgLoss)
	}

	return rsi, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
