// runner.go
// Сборка конвейера запуска: загрузка данных → снапшот → перебор →
// пороги MINIMUMS → сортировка для показа. Пороги и сортировка — забота
// этого слоя: оркестратор отдаёт несортированный полный набор.
package sweeper

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"sweep/internal"
	"sweep/internal/config"
	"sweep/internal/feed"
	"sweep/internal/score"
	"sweep/internal/sweep"
)

// Runner выполняет один полный прогон перебора.
type Runner struct {
	cfg    *config.Config
	loader *feed.Loader
	orch   *sweep.Orchestrator
	log    zerolog.Logger
}

func NewRunner(cfg *config.Config, log zerolog.Logger) (*Runner, error) {
	var client *feed.Client
	if cfg.Source.Endpoint != "" {
		client = feed.NewClient(cfg.Source.Endpoint, cfg.Source.Token, log)
		if cfg.Source.Interval != "" {
			client = client.WithInterval(cfg.Source.Interval)
		}
	}

	orch, err := sweep.NewOrchestrator(cfg.Kind(), cfg.Grid, cfg.Options(), cfg.PoolSize, log)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:    cfg,
		loader: feed.NewLoader(cfg.DataDir, client, log),
		orch:   orch,
		log:    log,
	}, nil
}

// Run перебирает сетку по тикерам из конфигурации. tickers непустой —
// переопределение списка (для API-запросов).
func (r *Runner) Run(ctx context.Context, tickers []string) (*Report, error) {
	started := time.Now()

	if len(tickers) == 0 {
		tickers = r.cfg.Tickers
	}
	if len(tickers) == 0 {
		return nil, internal.NewConfigurationErrorf("no tickers configured")
	}

	loader := r.loader
	snapshotUsed := false
	if r.cfg.Snapshot {
		// Сбой снапшота нефатален: продолжаем на свежих данных
		snap, err := loader.Snapshot(tickers)
		if err != nil {
			r.log.Warn().Err(err).Msg("data consistency warning: snapshot failed, proceeding with live data")
		} else {
			loader = snap
			snapshotUsed = true
		}
	}

	var data []sweep.TickerData
	var failed []sweep.SweepOutcome
	for _, ticker := range tickers {
		candles, err := loader.Load(ctx, ticker)
		if err != nil {
			// Тикерная ошибка попадает в отчёт, соседи продолжают
			r.log.Error().Err(err).Str("ticker", ticker).Msg("ticker data unavailable")
			failed = append(failed, sweep.SweepOutcome{Ticker: ticker, Err: err})
			continue
		}
		data = append(data, sweep.TickerData{Ticker: ticker, Candles: candles})
	}

	outcomes := r.orch.SweepAll(ctx, data)
	outcomes = append(outcomes, failed...)

	report := &Report{
		Strategy:     r.cfg.Kind(),
		Direction:    r.cfg.TradeDirection(),
		Outcomes:     outcomes,
		FilteredOut:  make(map[string]int),
		SnapshotUsed: snapshotUsed,
		StartedAt:    started,
		Elapsed:      time.Since(started),
	}
	r.finalize(report)
	return report, nil
}

// finalize применяет пороги MINIMUMS и сортирует записи по оценке.
func (r *Runner) finalize(report *Report) {
	for i := range report.Outcomes {
		out := &report.Outcomes[i]
		if out.Err != nil {
			continue
		}

		if len(r.cfg.Minimums) > 0 {
			kept := out.Results[:0]
			for _, res := range out.Results {
				if score.MeetsMinimums(res.Stats, r.cfg.Minimums) {
					kept = append(kept, res)
				}
			}
			report.FilteredOut[out.Ticker] = len(out.Results) - len(kept)
			out.Results = kept
		}

		sort.SliceStable(out.Results, func(a, b int) bool {
			return out.Results[a].Score > out.Results[b].Score
		})
	}
}
