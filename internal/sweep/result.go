// result.go
package sweep

import (
	"time"

	"sweep/internal"
	"sweep/internal/score"
	"sweep/internal/sim"
)

// StandardizedResult — стандартизованная запись одной валидной комбинации.
type StandardizedResult struct {
	Ticker string                  `json:"ticker"`
	Params internal.StrategyParams `json:"params"`
	Key    string                  `json:"key"`

	Score     float64         `json:"score"`
	Breakdown score.Breakdown `json:"breakdown"`

	Stats    sim.RawTradeStatistics `json:"stats"`
	Calendar score.CalendarMetrics  `json:"calendar"`

	// Производная метрика: средний результат сделки × сделок в месяц
	ExpectancyPerMonth float64 `json:"expectancy_per_month"`

	// Классификация последнего бара: неподтверждённый вход/выход
	Currency internal.SignalCurrency `json:"currency"`
}

// SweepOutcome — итог перебора одного тикера. Пустой Results при нулевом
// Err — успешный пустой результат, не сбой тикера.
type SweepOutcome struct {
	Ticker string `json:"ticker"`

	Results []StandardizedResult `json:"results"`

	Evaluated int `json:"evaluated"` // просимулировано и оценено
	Skipped   int `json:"skipped"`   // нехватка данных или вырожденный стоп
	Rejected  int `json:"rejected"`  // вырожденная статистика симуляции
	Failed    int `json:"failed"`    // ошибки симуляции и паники

	CacheStats CacheStats    `json:"cache_stats"`
	Elapsed    time.Duration `json:"elapsed"`

	Err error `json:"-"` // тикерная ошибка: данные не получены и т.п.
}
