// params.go
// Явный tagged-union параметров стратегии вместо слабо типизированных
// map-конфигов: вариант определяется полем Kind, валидация выполняется
// один раз на входе в перебор.
package internal

import (
	"fmt"
	"strings"
)

// StrategyKind — вариант стратегии.
type StrategyKind int

const (
	KindSMA StrategyKind = iota // пересечение простых скользящих средних
	KindEMA                     // пересечение экспоненциальных скользящих средних
	KindMACD                    // пересечение линии MACD и сигнальной линии
	KindSMAWithATR              // входы по SMA, выход по ATR trailing stop
)

func (k StrategyKind) String() string {
	switch k {
	case KindSMA:
		return "SMA"
	case KindEMA:
		return "EMA"
	case KindMACD:
		return "MACD"
	case KindSMAWithATR:
		return "SMA_ATR"
	default:
		return fmt.Sprintf("StrategyKind(%d)", int(k))
	}
}

// ParseStrategyKind разбирает значение опции STRATEGY_TYPE.
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SMA":
		return KindSMA, nil
	case "EMA":
		return KindEMA, nil
	case "MACD":
		return KindMACD, nil
	case "SMA_ATR", "SMA+ATR":
		return KindSMAWithATR, nil
	default:
		return 0, NewConfigurationErrorf("unknown strategy type %q", s)
	}
}

// Direction — направление торговли. Для Short все сравнения зеркальны.
type Direction int

const (
	DirectionLong  Direction = 1
	DirectionShort Direction = -1
)

func (d Direction) String() string {
	if d == DirectionShort {
		return "Short"
	}
	return "Long"
}

// Sign — направление как сигнал позиции.
func (d Direction) Sign() Signal {
	if d == DirectionShort {
		return Short
	}
	return Long
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "":
		return DirectionLong, nil
	case "short":
		return DirectionShort, nil
	default:
		return 0, NewConfigurationErrorf("unknown direction %q", s)
	}
}

// StrategyParams — одна комбинация параметров. Поля, не относящиеся к
// варианту Kind, равны нулю и в канонический ключ не входят.
type StrategyParams struct {
	Kind StrategyKind `json:"kind"`

	Fast int `json:"fast"`
	Slow int `json:"slow"`

	// только KindMACD
	SignalPeriod int `json:"signal_period,omitempty"`
	RSIPeriod    int `json:"rsi_period,omitempty"` // 0 — фильтр выключен

	// только KindSMAWithATR
	ATRLength     int     `json:"atr_length,omitempty"`
	ATRMultiplier float64 `json:"atr_multiplier,omitempty"`
}

// Validate проверяет инварианты варианта: fast < slow, multiplier > 0.
// Границы окон относительно сетки проверяет слой конфигурации.
func (p StrategyParams) Validate() error {
	if p.Fast <= 0 || p.Slow <= 0 {
		return NewConfigurationErrorf("periods must be positive, got fast=%d slow=%d", p.Fast, p.Slow)
	}
	if p.Fast >= p.Slow {
		return NewConfigurationErrorf("fast period must be less than slow, got fast=%d slow=%d", p.Fast, p.Slow)
	}

	switch p.Kind {
	case KindSMA, KindEMA:
		return nil
	case KindMACD:
		if p.SignalPeriod <= 0 {
			return NewConfigurationErrorf("macd signal period must be positive, got %d", p.SignalPeriod)
		}
		if p.RSIPeriod < 0 {
			return NewConfigurationErrorf("rsi period must be non-negative, got %d", p.RSIPeriod)
		}
		return nil
	case KindSMAWithATR:
		if p.ATRLength <= 0 {
			return NewConfigurationErrorf("atr length must be positive, got %d", p.ATRLength)
		}
		if p.ATRMultiplier <= 0 {
			return NewConfigurationErrorf("atr multiplier must be positive, got %.4f", p.ATRMultiplier)
		}
		return nil
	default:
		return NewConfigurationErrorf("unknown strategy kind %d", int(p.Kind))
	}
}

// Lookback — минимальное число баров для расчёта всех индикаторов варианта.
func (p StrategyParams) Lookback() int {
	lb := p.Slow + 1
	if p.Kind == KindMACD {
		lb = p.Slow + p.SignalPeriod
		if p.RSIPeriod+1 > lb {
			lb = p.RSIPeriod + 1
		}
	}
	if p.Kind == KindSMAWithATR && p.ATRLength+1 > lb {
		lb = p.ATRLength + 1
	}
	return lb
}

// Key — каноническая строка комбинации: ключ кэшей и идентификатор в логах.
func (p StrategyParams) Key() string {
	switch p.Kind {
	case KindMACD:
		if p.RSIPeriod > 0 {
			return fmt.Sprintf("MACD(%d,%d,%d,rsi=%d)", p.Fast, p.Slow, p.SignalPeriod, p.RSIPeriod)
		}
		return fmt.Sprintf("MACD(%d,%d,%d)", p.Fast, p.Slow, p.SignalPeriod)
	case KindSMAWithATR:
		return fmt.Sprintf("SMA_ATR(%d,%d,%d,%.2f)", p.Fast, p.Slow, p.ATRLength, p.ATRMultiplier)
	default:
		return fmt.Sprintf("%s(%d,%d)", p.Kind, p.Fast, p.Slow)
	}
}

func (p StrategyParams) String() string { return p.Key() }

// Options — сквозные настройки перебора, не входящие в комбинацию.
type Options struct {
	Direction  Direction
	FeeRate    float64 // комиссия за сторону сделки, доля
	StopLoss   float64 // опциональный стоп-лосс, доля (0 — выключен)
	Hourly     bool    // USE_HOURLY: меняет конвенцию аннуализации
	AlwaysOpen bool    // рынок без сессий (30 дней/месяц в календарных метриках)
}

func (o Options) Validate() error {
	if o.Direction != DirectionLong && o.Direction != DirectionShort {
		return NewConfigurationErrorf("direction must be Long or Short")
	}
	if o.FeeRate < 0 || o.FeeRate >= 0.5 {
		return NewConfigurationErrorf("fee rate out of range: %.4f", o.FeeRate)
	}
	if o.StopLoss < 0 || o.StopLoss >= 1 {
		return NewConfigurationErrorf("stop loss fraction out of range: %.4f", o.StopLoss)
	}
	return nil
}
