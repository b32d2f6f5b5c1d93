// calendar.go
// Календарные метрики интенсивности торговли. Круглосуточный рынок живёт
// по 30 дней в месяце, сессионный — по 21 торговому дню с пересчётом
// календарных дней в торговые через 252/365.
package score

import "sweep/internal/sim"

// CalendarMetrics — интенсивность торговли в месяцах.
type CalendarMetrics struct {
	Months          float64 `json:"months"`
	TradesPerMonth  float64 `json:"trades_per_month"`
	SignalsPerMonth float64 `json:"signals_per_month"`
}

// Calendar пересчитывает статистику в помесячную интенсивность. Период
// короче месяца округляется до месяца, чтобы короткие серии не давали
// фиктивно высокую частоту.
func Calendar(stats sim.RawTradeStatistics, alwaysOpen bool) CalendarMetrics {
	days := stats.TotalPeriodDays

	var months float64
	if alwaysOpen {
		months = days / 30
	} else {
		months = days * 252 / 365 / 21
	}
	if months < 1 {
		months = 1
	}

	// Закрытая сделка — два сигнала (вход и выход), открытая на конце — один
	signals := float64(2 * stats.TotalTrades)
	if stats.OpenTradeAtEnd {
		signals++
	}

	return CalendarMetrics{
		Months:          months,
		TradesPerMonth:  float64(stats.TotalTrades) / months,
		SignalsPerMonth: signals / months,
	}
}

// MeetsMinimums проверяет запись против порогов MINIMUMS. Неизвестные
// ключи игнорируются: конфигурация уже предупредила о них при разборе.
func MeetsMinimums(stats sim.RawTradeStatistics, minimums map[string]float64) bool {
	for key, min := range minimums {
		switch key {
		case "win_rate":
			if !(stats.WinRate >= min) {
				return false
			}
		case "total_trades":
			if float64(stats.TotalTrades) < min {
				return false
			}
		case "profit_factor":
			if !(stats.ProfitFactor >= min) {
				return false
			}
		case "expectancy":
			if !(stats.ExpectancyPerTrade >= min) {
				return false
			}
		case "sortino":
			if !(stats.SortinoRatio >= min) {
				return false
			}
		case "total_return":
			if !(stats.TotalReturn >= min) {
				return false
			}
		}
	}
	return true
}
