// orchestrator.go
// Оркестратор перебора. Внутри тикера комбинации идут последовательно
// против собственного кэша тикера; между тикерами работа раздаётся
// ограниченному пулу воркеров, когда тикеров больше порога. Каждый
// воркер владеет своим кэшем — блокировок нет, делить нечего.
//
// Ошибка одной комбинации никогда не прерывает соседние: она ловится на
// границе оркестратора и превращается в "нет результата". Ошибка уровня
// тикера прерывает только свой тикер.
package sweep

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"sweep/internal"
	"sweep/internal/score"
	"sweep/internal/sim"
)

// poolThreshold — число тикеров, до которого пул не окупается.
const poolThreshold = 2

// TickerData — вход перебора: тикер и его серия баров.
type TickerData struct {
	Ticker  string
	Candles []internal.Candle
}

// Orchestrator перебирает сетку параметров по тикерам.
type Orchestrator struct {
	kind     internal.StrategyKind
	grid     Grid
	opts     internal.Options
	poolSize int
	log      zerolog.Logger
}

// NewOrchestrator валидирует сетку и опции один раз на входе в перебор.
func NewOrchestrator(kind internal.StrategyKind, grid Grid, opts internal.Options, poolSize int, log zerolog.Logger) (*Orchestrator, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if kind == internal.KindSMAWithATR && (len(grid.ATRLengths) == 0 || len(grid.ATRMultipliers) == 0) {
		return nil, internal.NewConfigurationErrorf("atr grid dimensions are empty")
	}
	if kind == internal.KindMACD && len(grid.SignalPeriods) == 0 {
		return nil, internal.NewConfigurationErrorf("macd signal periods are empty")
	}
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}
	return &Orchestrator{kind: kind, grid: grid, opts: opts, poolSize: poolSize, log: log}, nil
}

// SweepAll перебирает сетку по всем тикерам. Порядок результатов между
// тикерами при пуле не гарантируется, внутри исхода тикера — тоже:
// ранжирование происходит ниже по конвейеру.
func (o *Orchestrator) SweepAll(ctx context.Context, data []TickerData) []SweepOutcome {
	outcomes := make([]SweepOutcome, len(data))

	if len(data) <= poolThreshold {
		for i, td := range data {
			outcomes[i] = o.sweepUnit(ctx, td)
		}
		return outcomes
	}

	workers := o.poolSize
	if workers > len(data) {
		workers = len(data)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = o.sweepUnit(ctx, data[i])
			}
		}()
	}
	for i := range data {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// sweepUnit — единица работы пула: полный перебор одного тикера.
// Отмена контекста действует на границе тикера, не внутри.
func (o *Orchestrator) sweepUnit(ctx context.Context, td TickerData) SweepOutcome {
	if err := ctx.Err(); err != nil {
		return SweepOutcome{Ticker: td.Ticker, Err: &internal.TickerError{Ticker: td.Ticker, Err: err}}
	}
	return o.SweepTicker(td)
}

// SweepTicker перебирает сетку по одному тикеру против его кэша.
func (o *Orchestrator) SweepTicker(td TickerData) SweepOutcome {
	start := time.Now()
	log := o.log.With().Str("ticker", td.Ticker).Str("strategy", o.kind.String()).Logger()

	outcome := SweepOutcome{Ticker: td.Ticker}

	if len(td.Candles) == 0 {
		outcome.Err = &internal.TickerError{Ticker: td.Ticker, Err: errors.New("no price data")}
		observeOutcome(outcome)
		return outcome
	}

	// Кэш живёт от старта перебора тикера до его конца
	cache := NewCache(td.Candles, o.opts.Direction)

	if o.kind == internal.KindSMAWithATR {
		o.sweepATR(log, cache, td, &outcome)
	} else {
		o.sweepFlat(log, cache, td, &outcome)
	}

	outcome.CacheStats = cache.Stats()
	outcome.Elapsed = time.Since(start)
	observeOutcome(outcome)

	log.Info().
		Int("evaluated", outcome.Evaluated).
		Int("skipped", outcome.Skipped).
		Int("rejected", outcome.Rejected).
		Int("failed", outcome.Failed).
		Int("cache_hits", outcome.CacheStats.Hits).
		Dur("elapsed", outcome.Elapsed).
		Msg("ticker sweep finished")

	return outcome
}

// sweepFlat — перебор плоских вариантов (SMA, EMA, MACD).
func (o *Orchestrator) sweepFlat(log zerolog.Logger, cache *Cache, td TickerData, outcome *SweepOutcome) {
	for _, p := range o.grid.Combinations(o.kind) {
		var series internal.SignalSeries
		var err error

		switch p.Kind {
		case internal.KindSMA, internal.KindEMA:
			// Уровневая серия и есть итоговая: комбинации с общей парой
			// окон получают один и тот же кэшированный слайс
			series, err = cache.EntrySignals(p.Kind, p.Fast, p.Slow)
		default:
			series, err = internal.GenerateSignals(td.Candles, p, o.opts.Direction)
		}

		if err != nil {
			o.recordSkip(log, p, err, outcome)
			continue
		}
		o.evaluate(log, cache, td, p, series, outcome)
	}
}

// sweepATR — вложенный перебор SMA_ATR: пары окон → длины ATR →
// множители. Входная серия считается один раз на пару, ATR — один раз
// на тройку, перебор множителей не трогает индикаторы вовсе.
func (o *Orchestrator) sweepATR(log zerolog.Logger, cache *Cache, td TickerData, outcome *SweepOutcome) {
	perPair := len(o.grid.ATRLengths) * len(o.grid.ATRMultipliers)

	for _, pair := range o.grid.Pairs() {
		fast, slow := pair.A, pair.B

		entry, err := cache.EntrySignals(internal.KindSMAWithATR, fast, slow)
		if err != nil {
			outcome.Skipped += perPair
			log.Warn().Err(err).Int("fast", fast).Int("slow", slow).Msg("entry signals unavailable, pair skipped")
			continue
		}

		for _, length := range o.grid.ATRLengths {
			atr, err := cache.ATRSeries(fast, slow, length)
			if err != nil {
				outcome.Skipped += len(o.grid.ATRMultipliers)
				log.Warn().Err(err).Int("fast", fast).Int("slow", slow).Int("atr_length", length).
					Msg("atr series unavailable, length skipped")
				continue
			}

			for _, mult := range o.grid.ATRMultipliers {
				p := internal.StrategyParams{
					Kind:          internal.KindSMAWithATR,
					Fast:          fast,
					Slow:          slow,
					ATRLength:     length,
					ATRMultiplier: mult,
				}

				series, degenerate := internal.ApplyATRTrailingStop(td.Candles, entry, atr, mult, o.opts.Direction)
				if degenerate {
					// Стоп на последнем баре не даёт границы выхода:
					// комбинация учитывается в прогрессе, но не симулируется
					outcome.Skipped++
					log.Debug().Str("params", p.Key()).Msg("degenerate trailing stop, combination skipped")
					continue
				}

				o.evaluate(log, cache, td, p, series, outcome)
			}
		}
	}
}

func (o *Orchestrator) recordSkip(log zerolog.Logger, p internal.StrategyParams, err error, outcome *SweepOutcome) {
	switch {
	case internal.IsInsufficientData(err):
		outcome.Skipped++
		log.Warn().Err(err).Str("params", p.Key()).Msg("insufficient data, combination skipped")
	case internal.IsConfiguration(err):
		outcome.Skipped++
		log.Warn().Err(err).Str("params", p.Key()).Msg("invalid combination skipped")
	default:
		outcome.Failed++
		log.Error().Err(err).Str("params", p.Key()).Msg("signal generation failed, combination excluded")
	}
}

// evaluate симулирует одну комбинацию и превращает её ошибку в "нет
// результата", не прерывая соседние комбинации.
func (o *Orchestrator) evaluate(log zerolog.Logger, cache *Cache, td TickerData, p internal.StrategyParams, series internal.SignalSeries, outcome *SweepOutcome) {
	res, err := o.simulateOne(cache, td, p, series)
	switch {
	case err != nil:
		outcome.Failed++
		log.Error().Err(err).Str("params", p.Key()).Msg("simulation failed, combination excluded")
	case res == nil:
		// Вырожденная статистика: бесконечный profit factor и подобное
		outcome.Rejected++
		log.Debug().Str("params", p.Key()).Msg("degenerate statistics, result rejected")
	default:
		outcome.Evaluated++
		outcome.Results = append(outcome.Results, *res)
	}
}

func (o *Orchestrator) simulateOne(cache *Cache, td TickerData, p internal.StrategyParams, series internal.SignalSeries) (res *StandardizedResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &internal.SimulationError{
				Ticker: td.Ticker,
				Params: p.Key(),
				Err:    errors.Errorf("panic: %v", r),
			}
		}
	}()

	stats := sim.Backtest(td.Candles, series, sim.Config{
		Direction:  o.opts.Direction,
		FeeRate:    o.opts.FeeRate,
		StopLoss:   o.opts.StopLoss,
		Hourly:     o.opts.Hourly,
		AlwaysOpen: o.opts.AlwaysOpen,
	})

	if !score.Acceptable(stats) {
		return nil, nil
	}

	composite, breakdown := score.Compose(stats)
	if math.IsNaN(composite) {
		return nil, nil
	}

	cal := score.Calendar(stats, o.opts.AlwaysOpen)

	return &StandardizedResult{
		Ticker:             td.Ticker,
		Params:             p,
		Key:                p.Key(),
		Score:              composite,
		Breakdown:          breakdown,
		Stats:              stats,
		Calendar:           cal,
		ExpectancyPerMonth: cal.TradesPerMonth * stats.ExpectancyPerTrade,
		Currency:           o.classify(cache, td, p, series),
	}, nil
}

// classify определяет неподтверждённый сигнал последнего бара. Предиктор
// советующий: любая проблема с линиями даёт None, не ошибку.
func (o *Orchestrator) classify(cache *Cache, td TickerData, p internal.StrategyParams, series internal.SignalSeries) internal.SignalCurrency {
	var fastLine, slowLine []float64

	switch p.Kind {
	case internal.KindMACD:
		macdLine, signalLine, _, err := internal.CalculateMACDWithSignal(td.Candles, p.Fast, p.Slow, p.SignalPeriod)
		if err != nil {
			return internal.CurrencyNone
		}
		fastLine, slowLine = macdLine, signalLine
	default:
		lines, err := cache.MovingAverageLines(p.Kind, p.Fast, p.Slow)
		if err != nil {
			return internal.CurrencyNone
		}
		fastLine, slowLine = lines.fast, lines.slow
	}

	snap := internal.LatestSnapshot(fastLine, slowLine, series)
	return internal.ClassifyLatestBar(snap, o.opts.Direction)
}
