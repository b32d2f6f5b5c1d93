// normalize.go
// Нормализация сырых метрик в общий диапазон [0.1, 2.618] и композитная
// оценка. Кривые несимметричны специально: штраф за слабые значения
// круче, чем награда за сильные, чтобы перебор не выбирал случайные
// выбросы.
package score

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"sweep/internal/sim"
)

const (
	// Floor — нижняя граница любой нормализованной метрики.
	Floor = 0.1
	// Ceiling — верхняя граница, квадрат золотого сечения.
	Ceiling = 2.618
)

// Веса композитной оценки. Сумма равна весовому знаменателю, так что
// оценка остаётся в диапазоне нормализованных метрик.
const (
	weightWinRate         = 2.5
	weightTotalTrades     = 1.5
	weightSortino         = 1.2
	weightProfitFactor    = 1.2
	weightExpectancy      = 1.0
	weightBeatsBuyAndHold = 0.6

	weightDenominator = 8.0
)

// z для 95% доверительного интервала Уилсона.
var wilsonZ = distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.975)

// Breakdown — нормализованные компоненты композитной оценки.
type Breakdown struct {
	WinRate         float64 `json:"win_rate"`
	TotalTrades     float64 `json:"total_trades"`
	Sortino         float64 `json:"sortino"`
	ProfitFactor    float64 `json:"profit_factor"`
	Expectancy      float64 `json:"expectancy"`
	BeatsBuyAndHold float64 `json:"beats_buy_and_hold"`
}

// Acceptable отсеивает вырожденные симуляции, не подлежащие оценке:
// бесконечный profit factor (ни одного убытка), NaN-ожидание или
// отсутствие убыточных сделок при ненулевом их числе. Ноль сделок —
// не вырождение: такая запись остаётся с нулевой оценкой.
func Acceptable(stats sim.RawTradeStatistics) bool {
	if math.IsInf(stats.ProfitFactor, 0) {
		return false
	}
	if stats.TotalTrades > 0 {
		if math.IsNaN(stats.ExpectancyPerTrade) {
			return false
		}
		if math.IsNaN(stats.AvgLosingTrade) {
			return false
		}
	}
	return true
}

// Compose сводит сырые метрики в одну оценку. Отсутствие любой из
// обязательных метрик (NaN) даёт ровно 0 — запись остаётся в выдаче,
// но ничего не выигрывает; молчаливая подмена компоненты полом запрещена.
func Compose(stats sim.RawTradeStatistics) (float64, Breakdown) {
	if math.IsNaN(stats.WinRate) ||
		math.IsNaN(stats.ProfitFactor) ||
		math.IsNaN(stats.ExpectancyPerTrade) ||
		math.IsNaN(stats.SortinoRatio) ||
		math.IsNaN(stats.TotalReturn-stats.BuyAndHoldReturn) {
		return 0, Breakdown{}
	}

	b := Breakdown{
		WinRate:         NormalizeWinRate(stats.WinRate, stats.TotalTrades),
		TotalTrades:     NormalizeTotalTrades(stats.TotalTrades),
		Sortino:         NormalizeSortino(stats.SortinoRatio),
		ProfitFactor:    NormalizeProfitFactor(stats.ProfitFactor),
		Expectancy:      NormalizeExpectancy(stats.ExpectancyPerTrade),
		BeatsBuyAndHold: NormalizeBeatsBuyAndHold(stats.TotalReturn - stats.BuyAndHoldReturn),
	}

	score := (b.WinRate*weightWinRate +
		b.TotalTrades*weightTotalTrades +
		b.Sortino*weightSortino +
		b.ProfitFactor*weightProfitFactor +
		b.Expectancy*weightExpectancy +
		b.BeatsBuyAndHold*weightBeatsBuyAndHold) / weightDenominator

	return clamp(score), b
}

// NormalizeWinRate смешивает сырую долю побед с нижней границей Уилсона:
// малое число сделок почти целиком доверяет пессимистичной границе,
// большое — сырому значению.
func NormalizeWinRate(winRate float64, trades int) float64 {
	if trades <= 0 {
		return Floor
	}

	lower := wilsonLowerBound(winRate, trades)
	w := 1 - math.Exp(-3/math.Sqrt(float64(trades)))
	blended := w*lower + (1-w)*winRate

	if blended <= 0.5 {
		return Floor + (1.0-Floor)*math.Pow(blended/0.5, 1.8)
	}
	return Ceiling - (Ceiling-1.0)*math.Exp(-6*(blended-0.5))
}

// wilsonLowerBound — нижняя граница доверительного интервала Уилсона
// для доли побед.
func wilsonLowerBound(p float64, n int) float64 {
	nf := float64(n)
	z2 := wilsonZ * wilsonZ
	denom := 1 + z2/nf
	center := p + z2/(2*nf)
	margin := wilsonZ * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf))
	lower := (center - margin) / denom
	if lower < 0 {
		return 0
	}
	return lower
}

// NormalizeProfitFactor: 1.0 — точка безубыточности, 2.0 — хорошая
// стратегия, выше 4.0 кривая плоская, чтобы выбросы не доминировали.
func NormalizeProfitFactor(pf float64) float64 {
	switch {
	case math.IsNaN(pf) || pf <= 0.8:
		return Floor
	case pf <= 1.0:
		return Floor + (1.0-Floor)*(pf-0.8)/0.2
	case pf <= 2.0:
		return 1.0 + (2.0-1.0)*(pf-1.0)
	case pf <= 4.0:
		return 2.0 + (Ceiling-2.0)*math.Sqrt((pf-2.0)/2.0)
	default:
		return Ceiling
	}
}

// NormalizeExpectancy — насыщающаяся кривая: среднее +5% на сделку даёт
// середину диапазона, отрицательное ожидание — пол.
func NormalizeExpectancy(expectancyPct float64) float64 {
	if math.IsNaN(expectancyPct) || expectancyPct <= 0 {
		return Floor
	}
	x := math.Pow(expectancyPct/5.0, 1.2)
	return Floor + (Ceiling-Floor)*x/(1+x)
}

// NormalizeSortino — логистическая кривая с серединой на 1.5.
func NormalizeSortino(sortino float64) float64 {
	if math.IsNaN(sortino) {
		return Floor
	}
	return clamp(Floor + (Ceiling-Floor)/(1+math.Exp(-0.9*(sortino-1.5))))
}

// NormalizeTotalTrades — горб с плато на 50–100 сделках: слишком мало —
// статистики нет, слишком много — стратегия торгует шум.
func NormalizeTotalTrades(trades int) float64 {
	n := float64(trades)
	switch {
	case trades <= 0:
		return Floor
	case trades < 30:
		return Floor + (1.6-Floor)*math.Pow(n/30, 1.5)
	case trades <= 50:
		return 1.6 + (Ceiling-1.6)*(n-30)/20
	case trades <= 100:
		return Ceiling
	case trades <= 200:
		return Ceiling - (Ceiling-1.8)*(n-100)/100
	default:
		return 1.2 + 0.6*math.Exp(-(n-200)/400)
	}
}

// NormalizeBeatsBuyAndHold — линейная награда за превышение над
// "купил и держи", с отсечкой по общим границам.
func NormalizeBeatsBuyAndHold(diff float64) float64 {
	if math.IsNaN(diff) {
		return Floor
	}
	return clamp(1.0 + diff*3.0)
}

func clamp(v float64) float64 {
	if v < Floor {
		return Floor
	}
	if v > Ceiling {
		return Ceiling
	}
	return v
}
