// printer.go
package sweeper

import (
	"fmt"
	"strings"
	"time"

	"sweep/internal"
)

// ConsolePrinter — вывод сравнительной таблицы комбинаций в консоль.
type ConsolePrinter struct{}

func NewConsolePrinter() *ConsolePrinter {
	return &ConsolePrinter{}
}

// PrintReport выводит по каждому тикеру топ-N комбинаций по оценке.
// Ошибка тикера и пустой успешный результат показываются по-разному.
func (p *ConsolePrinter) PrintReport(report *Report, topN int) {
	fmt.Println("\n" + strings.Repeat("=", 110))
	fmt.Printf("📊 ПЕРЕБОР ПАРАМЕТРОВ: %s / %s\n", report.Strategy, report.Direction)
	fmt.Println(strings.Repeat("=", 110))

	for _, out := range report.Outcomes {
		if out.Err != nil {
			fmt.Printf("\n❌ %s: %v\n", out.Ticker, out.Err)
			continue
		}

		fmt.Printf("\n🎯 %s — оценено %d, пропущено %d, отклонено %d, ошибок %d (%s, кэш: %d/%d)\n",
			out.Ticker, out.Evaluated, out.Skipped, out.Rejected, out.Failed,
			formatDuration(out.Elapsed), out.CacheStats.Hits, out.CacheStats.Misses)

		if filtered := report.FilteredOut[out.Ticker]; filtered > 0 {
			fmt.Printf("   🔻 Отсечено порогами MINIMUMS: %d\n", filtered)
		}

		if len(out.Results) == 0 {
			fmt.Println("   ℹ️ Ни одной валидной комбинации — пустой результат, не ошибка")
			continue
		}

		fmt.Printf("%-26s %-8s %-9s %-8s %-8s %-10s %-9s %-8s\n",
			"Комбинация", "Оценка", "Доход", "Сделки", "WinRate", "PF", "Сделки/м", "Сигнал")
		fmt.Println(strings.Repeat("-", 110))

		for i, res := range out.Results {
			if i >= topN {
				break
			}
			medal := "  "
			switch i {
			case 0:
				medal = "🥇"
			case 1:
				medal = "🥈"
			case 2:
				medal = "🥉"
			}

			currency := ""
			if res.Currency != internal.CurrencyNone {
				currency = "⚡ " + res.Currency.String()
			}

			fmt.Printf("%s %-24s %-8.3f %+-8.1f%% %-8d %-8.1f%% %-10.2f %-9.1f %-8s\n",
				medal,
				res.Key,
				res.Score,
				res.Stats.TotalReturn*100,
				res.Stats.TotalTrades,
				res.Stats.WinRate*100,
				res.Stats.ProfitFactor,
				res.Calendar.TradesPerMonth,
				currency)
		}

		// Неподтверждённый сигнал лучшей комбинации — главное, ради чего
		// смотрят на свежий прогон
		best := out.Results[0]
		if best.Currency != internal.CurrencyNone {
			fmt.Printf("   ⚡ Лучшая комбинация %s даёт неподтверждённый сигнал: %s\n", best.Key, best.Currency)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 110))
	fmt.Printf("🏁 Готово за %s (снапшот данных: %v)\n", formatDuration(report.Elapsed), report.SnapshotUsed)
}

func formatDuration(d time.Duration) string {
	if d > time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.0fms", float64(d.Nanoseconds())/1e6)
}
