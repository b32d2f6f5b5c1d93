// predict.go
// Предиктор "валютности" сигнала: классифицирует последний бар как
// Entry/Exit/None по сырому соотношению линий, не дожидаясь подтверждения
// машиной состояний. Предиктор советующий — он никогда не возвращает
// ошибку и на любом вырожденном входе отвечает None.
package internal

import "math"

// SignalCurrency — классификация последнего бара.
type SignalCurrency int

const (
	CurrencyNone SignalCurrency = iota
	CurrencyEntry
	CurrencyExit
)

func (c SignalCurrency) String() string {
	switch c {
	case CurrencyEntry:
		return "Entry"
	case CurrencyExit:
		return "Exit"
	default:
		return "None"
	}
}

// BarSnapshot — сырые данные последнего бара для классификации.
type BarSnapshot struct {
	Fast           float64 // быстрая линия (или линия MACD)
	Slow           float64 // медленная линия (или сигнальная линия MACD)
	OpenPosition   bool    // позиция открыта по состоянию машины
	ConfirmedEntry bool    // машина уже подтвердила вход на этом баре
	ConfirmedExit  bool    // машина уже подтвердила выход на этом баре
}

// ClassifyLatestBar — Entry, когда линии в пользу направления и позиции
// нет; Exit, когда линии против направления при открытой позиции.
// Подтверждённый вход/выход всегда даёт None: событие уже отражено в
// серии, двойной репортинг запрещён.
func ClassifyLatestBar(s BarSnapshot, dir Direction) SignalCurrency {
	if s.ConfirmedEntry || s.ConfirmedExit {
		return CurrencyNone
	}
	if math.IsNaN(s.Fast) || math.IsNaN(s.Slow) || math.IsInf(s.Fast, 0) || math.IsInf(s.Slow, 0) {
		return CurrencyNone
	}

	inFavor := favors(s.Fast, s.Slow, dir)
	against := favors(s.Slow, s.Fast, dir) // строгое обратное соотношение

	switch {
	case inFavor && !s.OpenPosition:
		return CurrencyEntry
	case against && s.OpenPosition:
		return CurrencyExit
	default:
		return CurrencyNone
	}
}

// LatestSnapshot собирает BarSnapshot из индикаторных линий и серии
// машины состояний. Пустые серии дают снапшот, классифицируемый как None.
func LatestSnapshot(fast, slow []float64, series SignalSeries) BarSnapshot {
	snap := BarSnapshot{Fast: math.NaN(), Slow: math.NaN()}
	if len(fast) == 0 || len(slow) == 0 || len(series) == 0 {
		return snap
	}

	snap.Fast = fast[len(fast)-1]
	snap.Slow = slow[len(slow)-1]

	last := series.LastPosition()
	snap.OpenPosition = last != None

	// Подтверждение: позиция последнего бара изменилась относительно
	// предыдущего
	prev := None
	if len(series) > 1 {
		prev = series[len(series)-2].Position
	}
	snap.ConfirmedEntry = prev == None && last != None
	snap.ConfirmedExit = prev != None && last == None

	return snap
}
