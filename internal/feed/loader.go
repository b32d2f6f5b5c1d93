// loader.go
// Загрузка свечей для перебора: сперва локальный файл тикера, при его
// отсутствии — источник по сети (если клиент настроен) с сохранением на
// диск. Снапшот каталога данных даёт воркерам один и тот же срез цен.
package feed

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"sweep/internal"
)

// Loader отдаёт серию свечей по тикеру.
type Loader struct {
	dir    string
	depth  time.Duration
	client *Client // nil — только локальные файлы
	log    zerolog.Logger
}

func NewLoader(dir string, client *Client, log zerolog.Logger) *Loader {
	return &Loader{
		dir:    dir,
		depth:  5 * 365 * 24 * time.Hour,
		client: client,
		log:    log,
	}
}

// WithDepth ограничивает глубину сетевой догрузки истории.
func (l *Loader) WithDepth(depth time.Duration) *Loader {
	l.depth = depth
	return l
}

func (l *Loader) path(ticker string) string {
	return filepath.Join(l.dir, ticker+".json")
}

// Load возвращает хронологически упорядоченную серию тикера. Отсутствие
// данных — тикерная ошибка: прерывает только этот тикер.
func (l *Loader) Load(ctx context.Context, ticker string) ([]internal.Candle, error) {
	candles, err := l.loadFile(ticker)
	if err == nil {
		return candles, nil
	}
	if !os.IsNotExist(errors.Cause(err)) {
		return nil, &internal.TickerError{Ticker: ticker, Err: err}
	}

	if l.client == nil {
		return nil, &internal.TickerError{Ticker: ticker, Err: errors.Errorf("no local data at %s", l.path(ticker))}
	}

	l.log.Info().Str("ticker", ticker).Msg("local data missing, fetching from source")
	candles, err = l.client.FetchCandles(ctx, ticker, l.depth)
	if err != nil {
		return nil, &internal.TickerError{Ticker: ticker, Err: err}
	}
	if len(candles) == 0 {
		return nil, &internal.TickerError{Ticker: ticker, Err: errors.New("source returned no candles")}
	}

	if err := l.saveFile(ticker, candles); err != nil {
		l.log.Warn().Err(err).Str("ticker", ticker).Msg("failed to persist fetched candles")
	}
	return candles, nil
}

func (l *Loader) loadFile(ticker string) ([]internal.Candle, error) {
	data, err := os.ReadFile(l.path(ticker))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var wrapper internal.GetCandlesResponse
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, errors.Wrapf(err, "parse %s", l.path(ticker))
	}

	sortCandles(wrapper.Candles)
	return wrapper.Candles, nil
}

func (l *Loader) saveFile(ticker string, candles []internal.Candle) error {
	data, err := json.MarshalIndent(internal.GetCandlesResponse{Candles: candles}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal candles")
	}
	return errors.Wrap(os.WriteFile(l.path(ticker), data, 0644), "write candles file")
}

// Snapshot копирует файлы тикеров в каталог-снимок и возвращает Loader,
// читающий только из него: все воркеры запроса видят один срез данных.
// Сбой снапшота нефатален — вызывающий логирует предупреждение и
// продолжает на свежих данных.
func (l *Loader) Snapshot(tickers []string) (*Loader, error) {
	snapDir := filepath.Join(l.dir, "snapshots", time.Now().UTC().Format("20060102T150405"))
	if err := os.MkdirAll(snapDir, 0755); err != nil {
		return nil, errors.Wrap(err, "create snapshot dir")
	}

	copied := 0
	for _, ticker := range tickers {
		data, err := os.ReadFile(l.path(ticker))
		if err != nil {
			if os.IsNotExist(err) {
				continue // тикер догрузится по сети мимо снапшота
			}
			return nil, errors.Wrapf(err, "snapshot %s", ticker)
		}
		if err := os.WriteFile(filepath.Join(snapDir, ticker+".json"), data, 0644); err != nil {
			return nil, errors.Wrapf(err, "snapshot %s", ticker)
		}
		copied++
	}

	l.log.Info().Str("dir", snapDir).Int("tickers", copied).Msg("price snapshot created")

	snap := *l
	snap.dir = snapDir
	return &snap, nil
}
