// machine.go
//
// Сигнальные/позиционные машины состояний.
//
// Как работает:
// - Для MA/EMA/MACD сигнал уровневый: signal[i] = +1 (Long), если быстрая
//   линия выше медленной, иначе 0; для Short сравнение зеркально.
//   Позиция отстаёт от сигнала на один бар: position[i] = signal[i-1],
//   position[0] = 0.
// - ATR trailing stop поверх SMA-входов — последовательная машина с
//   путевой зависимостью: стоп подтягивается за экстремумом цены и
//   никогда не ослабляется внутри одного эпизода позиции. Позиция
//   формируется напрямую, без однобарного лага.
package internal

import (
	"math"

	"github.com/pkg/errors"
)

// ErrDegenerateStop — комбинация, чей стоп на последнем баре находится на
// цене или за ней: осмысленной границы выхода не существует. Оркестратор
// учитывает такие комбинации в прогрессе, но не симулирует.
var ErrDegenerateStop = errors.New("atr trailing stop is degenerate on the latest bar")

// GenerateSignals превращает бары и параметры в выровненную серию
// сигнал/позиция. Неизвестный Kind — ConfigurationError; короткая серия —
// InsufficientDataError.
func GenerateSignals(candles []Candle, p StrategyParams, dir Direction) (SignalSeries, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(candles) < p.Lookback() {
		return nil, NewInsufficientDataError(p.Lookback(), len(candles))
	}

	switch p.Kind {
	case KindSMA, KindEMA:
		fast, slow, err := crossLines(candles, p)
		if err != nil {
			return nil, err
		}
		return MACrossSignals(fast, slow, p.Slow-1, dir), nil

	case KindMACD:
		return macdSignals(candles, p, dir)

	case KindSMAWithATR:
		fast, err := CalculateSMA(candles, p.Fast)
		if err != nil {
			return nil, err
		}
		slow, err := CalculateSMA(candles, p.Slow)
		if err != nil {
			return nil, err
		}
		atr, err := CalculateATR(candles, p.ATRLength)
		if err != nil {
			return nil, err
		}
		entry := MACrossSignals(fast, slow, p.Slow-1, dir)
		series, degenerate := ApplyATRTrailingStop(candles, entry, atr, p.ATRMultiplier, dir)
		if degenerate {
			return nil, ErrDegenerateStop
		}
		return series, nil

	default:
		return nil, NewConfigurationErrorf("unknown strategy kind %d", int(p.Kind))
	}
}

func crossLines(candles []Candle, p StrategyParams) (fast, slow []float64, err error) {
	if p.Kind == KindEMA {
		if fast, err = CalculateEMA(candles, p.Fast); err != nil {
			return nil, nil, err
		}
		slow, err = CalculateEMA(candles, p.Slow)
		return fast, slow, err
	}
	if fast, err = CalculateSMA(candles, p.Fast); err != nil {
		return nil, nil, err
	}
	slow, err = CalculateSMA(candles, p.Slow)
	return fast, slow, err
}

// MACrossSignals строит уровневую серию по двум линиям. warm — индекс
// первого бара, на котором обе линии определены; до него сигнал и позиция
// равны нулю.
func MACrossSignals(fast, slow []float64, warm int, dir Direction) SignalSeries {
	n := len(fast)
	if len(slow) < n {
		n = len(slow)
	}
	series := make(SignalSeries, n)
	want := dir.Sign()

	for i := warm; i < n; i++ {
		if favors(fast[i], slow[i], dir) {
			series[i].Signal = want
		}
	}

	// Позиция — сигнал предыдущего бара; position[0] всегда 0
	for i := 1; i < n; i++ {
		series[i].Position = series[i-1].Signal
	}
	return series
}

// favors — сравнение линий в пользу направления.
func favors(fast, slow float64, dir Direction) bool {
	if math.IsNaN(fast) || math.IsNaN(slow) {
		return false
	}
	if dir == DirectionShort {
		return fast < slow
	}
	return fast > slow
}

// macdSignals — та же уровневая машина на линии MACD против сигнальной.
// RSIPeriod > 0 включает фильтр: вход из flat разрешён только когда RSI
// не в экстремальной зоне (Long < 70, Short > 30); уже открытый ряд
// сигналов фильтр не обрывает.
func macdSignals(candles []Candle, p StrategyParams, dir Direction) (SignalSeries, error) {
	macdLine, signalLine, _, err := CalculateMACDWithSignal(candles, p.Fast, p.Slow, p.SignalPeriod)
	if err != nil {
		return nil, err
	}

	warm := p.Slow + p.SignalPeriod - 1
	if warm >= len(candles) {
		return nil, NewInsufficientDataError(warm+1, len(candles))
	}

	var rsi []float64
	if p.RSIPeriod > 0 {
		if rsi, err = CalculateRSI(candles, p.RSIPeriod); err != nil {
			return nil, err
		}
	}

	series := make(SignalSeries, len(candles))
	want := dir.Sign()

	for i := warm; i < len(candles); i++ {
		if !favors(macdLine[i], signalLine[i], dir) {
			continue
		}
		entering := i == 0 || series[i-1].Signal == None
		if entering && rsi != nil && !rsiAllowsEntry(rsi[i], dir) {
			continue
		}
		series[i].Signal = want
	}

	for i := 1; i < len(series); i++ {
		series[i].Position = series[i-1].Signal
	}
	return series, nil
}

func rsiAllowsEntry(rsi float64, dir Direction) bool {
	if dir == DirectionShort {
		return rsi > 30
	}
	return rsi < 70
}

// ApplyATRTrailingStop накладывает выход по трейлинг-стопу на серию
// SMA-входов. O(n) по барам и O(1) дополнительной работы на множитель —
// entry и atr приходят из кэша и не пересчитываются.
//
// Состояние эпизода: стоп и экстремум цены с момента входа. Стоп двигается
// только в пользу позиции (монотонная трещотка). Выход — цена пересекла
// стоп против позиции либо базовый MA-сигнал развернулся; после выхода
// состояние сбрасывается в "не определено" до следующего входа.
//
// Второй результат — признак вырожденности: стоп последнего бара на цене
// или за ней (Long: stop >= close) не даёт границы выхода.
func ApplyATRTrailingStop(candles []Candle, entry SignalSeries, atr []float64, multiplier float64, dir Direction) (SignalSeries, bool) {
	n := len(candles)
	if len(entry) < n {
		n = len(entry)
	}
	if len(atr) < n {
		n = len(atr)
	}

	series := make(SignalSeries, n)
	want := dir.Sign()
	sign := float64(want) // +1 Long, -1 Short: зеркалит max/min и знак отступа

	inPos := false
	stop := math.NaN()
	extreme := math.NaN()

	for i := 0; i < n; i++ {
		price := candles[i].Close.ToFloat64()

		if !inPos {
			// Flat → entry по базовому MA-сигналу; ATR должен быть определён
			if entry[i].Signal == want && atr[i] > 0 {
				inPos = true
				extreme = price
				stop = price - sign*atr[i]*multiplier
				series[i] = SignalPoint{Signal: want, Position: want}
			}
			continue
		}

		// Обновляем экстремум и подтягиваем стоп; трещотка не ослабляется
		if sign*(price-extreme) > 0 {
			extreme = price
		}
		candidate := extreme - sign*atr[i]*multiplier
		if sign*(candidate-stop) > 0 {
			stop = candidate
		}

		exitByStop := sign*(price-stop) <= 0
		exitByReversal := entry[i].Signal != want
		if exitByStop || exitByReversal {
			inPos = false
			stop = math.NaN()
			extreme = math.NaN()
			continue // бар выхода: сигнал и позиция нулевые
		}

		series[i] = SignalPoint{Signal: want, Position: want}
	}

	return series, latestStopDegenerate(candles, atr, multiplier, dir, inPos, stop)
}

// latestStopDegenerate проверяет границу выхода на последнем баре. Для
// открытой позиции берётся действующий стоп, для flat — гипотетический
// стоп немедленного входа.
func latestStopDegenerate(candles []Candle, atr []float64, multiplier float64, dir Direction, inPos bool, stop float64) bool {
	if len(candles) == 0 || len(atr) == 0 {
		return true
	}
	price := candles[len(candles)-1].Close.ToFloat64()
	sign := float64(dir.Sign())

	latest := stop
	if !inPos {
		latest = price - sign*atr[len(atr)-1]*multiplier
	}
	if math.IsNaN(latest) || math.IsNaN(price) {
		return true
	}
	return sign*(latest-price) >= 0
}
