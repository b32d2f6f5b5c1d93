// saver.go
package sweeper

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// FileSaver сохраняет отчёт: полный JSON плюс CSV с записями по тикерам.
type FileSaver struct{}

func NewFileSaver() *FileSaver {
	return &FileSaver{}
}

func (s *FileSaver) Save(report *Report, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create output dir")
	}

	stamp := report.StartedAt.UTC().Format("20060102T150405")
	base := fmt.Sprintf("sweep_%s_%s_%s", report.Strategy, report.Direction, stamp)

	if err := s.saveJSON(report, filepath.Join(dir, base+".json")); err != nil {
		return err
	}
	if err := s.saveCSV(report, filepath.Join(dir, base+".csv")); err != nil {
		return err
	}

	fmt.Printf("💾 Отчёт сохранён: %s/%s.{json,csv}\n", dir, base)
	return nil
}

func (s *FileSaver) saveJSON(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "write report json")
}

var csvHeader = []string{
	"ticker", "key", "score", "total_return", "annualized_return", "max_drawdown",
	"total_trades", "win_rate", "profit_factor", "expectancy_per_trade",
	"sortino", "sharpe", "trades_per_month", "expectancy_per_month",
	"buy_and_hold", "currency",
}

func (s *FileSaver) saveCSV(report *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create report csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	for _, out := range report.Outcomes {
		if out.Err != nil {
			continue
		}
		for _, res := range out.Results {
			row := []string{
				res.Ticker,
				res.Key,
				formatFloat(res.Score),
				formatFloat(res.Stats.TotalReturn),
				formatFloat(res.Stats.AnnualizedReturn),
				formatFloat(res.Stats.MaxDrawdown),
				strconv.Itoa(res.Stats.TotalTrades),
				formatFloat(res.Stats.WinRate),
				formatFloat(res.Stats.ProfitFactor),
				formatFloat(res.Stats.ExpectancyPerTrade),
				formatFloat(res.Stats.SortinoRatio),
				formatFloat(res.Stats.SharpeRatio),
				formatFloat(res.Calendar.TradesPerMonth),
				formatFloat(res.ExpectancyPerMonth),
				formatFloat(res.Stats.BuyAndHoldReturn),
				res.Currency.String(),
			}
			if err := w.Write(row); err != nil {
				return errors.Wrap(err, "write csv row")
			}
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
