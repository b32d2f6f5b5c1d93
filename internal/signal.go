// signal.go
package internal

// Signal — дискретное состояние сигнала/позиции на баре: -1 шорт, 0 нет, +1 лонг.
type Signal int8

const (
	Short Signal = -1
	None  Signal = 0
	Long  Signal = 1
)

func (s Signal) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "NONE"
	}
}

// SignalPoint — сигнал и позиция одного бара. Инвариант серии: позиция
// выводится из сигнала с лагом в один бар, кроме ATR-машины, которая
// формирует позицию напрямую.
type SignalPoint struct {
	Signal   Signal `json:"signal"`
	Position Signal `json:"position"`
}

// SignalSeries выровнена 1:1 с барами исходной серии.
type SignalSeries []SignalPoint

// LastPosition — позиция последнего бара, None для пустой серии.
func (ss SignalSeries) LastPosition() Signal {
	if len(ss) == 0 {
		return None
	}
	return ss[len(ss)-1].Position
}
