// client.go
// HTTP-клиент источника свечей: постраничный сбор месячными блоками от
// настоящего к прошлому, пока источник не скажет, что данные кончились.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"sweep/internal"
)

const (
	defaultInterval = "CANDLE_INTERVAL_DAY"
	defaultLimit    = 1000
	monthStep       = 30 * 24 * time.Hour
	requestPause    = 100 * time.Millisecond
	maxCandles      = 500_000 // защита от бесконечного сбора
)

// Client достаёт исторические свечи у REST-источника.
type Client struct {
	endpoint string
	token    string
	interval string
	limit    int
	http     *http.Client
	log      zerolog.Logger
}

func NewClient(endpoint, token string, log zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		interval: defaultInterval,
		limit:    defaultLimit,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

// WithInterval меняет интервал свечей (например, часовые для USE_HOURLY).
func (c *Client) WithInterval(interval string) *Client {
	c.interval = interval
	return c
}

// FetchCandles собирает всю доступную историю инструмента, от свежих
// баров к старым, и возвращает её в хронологическом порядке.
func (c *Client) FetchCandles(ctx context.Context, instrumentID string, depth time.Duration) ([]internal.Candle, error) {
	toTime := time.Now().UTC()
	oldest := toTime.Add(-depth)
	var all []internal.Candle

	for toTime.After(oldest) {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		fromTime := toTime.Add(-monthStep)
		page, done, err := c.fetchPage(ctx, instrumentID, fromTime, toTime)
		if err != nil {
			return all, err
		}
		if done {
			break
		}

		if len(page) == 0 {
			// Пустой месяц: праздники или дыра в данных, идём дальше
			toTime = fromTime
			sleep(ctx, requestPause)
			continue
		}

		// Новые страницы старше уже собранных: вставляем в начало
		all = append(page, all...)

		first := page[0].ToTime()
		if first.IsZero() {
			return all, errors.Errorf("unparseable time on the oldest candle: %q", page[0].Time)
		}
		toTime = first

		c.log.Debug().
			Str("instrument", instrumentID).
			Int("page", len(page)).
			Int("total", len(all)).
			Time("until", toTime).
			Msg("candles page fetched")

		if len(all) > maxCandles {
			c.log.Warn().Int("total", len(all)).Msg("candle limit reached, fetch stopped")
			break
		}
		sleep(ctx, requestPause)
	}

	sortCandles(all)
	return all, nil
}

// fetchPage выполняет один запрос. done=true — источник сообщил, что
// данных больше нет.
func (c *Client) fetchPage(ctx context.Context, instrumentID string, from, to time.Time) ([]internal.Candle, bool, error) {
	reqBody := internal.CandlesRequest{
		From:         from.Format(time.RFC3339),
		To:           to.Format(time.RFC3339),
		Interval:     c.interval,
		InstrumentId: instrumentID,
		Limit:        c.limit,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, errors.Wrap(err, "marshal candles request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, false, errors.Wrap(err, "build candles request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, errors.Wrap(err, "candles request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.Wrap(err, "read candles response")
	}

	if resp.StatusCode != http.StatusOK {
		text := string(body)
		if strings.Contains(text, "not found") || strings.Contains(text, "no data") {
			return nil, true, nil
		}
		return nil, false, errors.Errorf("candles source returned %d: %s", resp.StatusCode, text)
	}

	var response internal.GetCandlesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, false, errors.Wrap(err, "parse candles response")
	}
	return response.Candles, false, nil
}

func sortCandles(candles []internal.Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].ToTime().Before(candles[j].ToTime())
	})
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
