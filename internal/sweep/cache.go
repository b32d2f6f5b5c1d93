// cache.go
// Кэш подвычислений одного прогона по одному тикеру. Живёт от старта
// перебора до его конца и принадлежит ровно одному воркеру, поэтому
// не потокобезопасен и не нуждается в блокировках.
//
// Что кэшируется:
//   - линии скользящих средних и входная серия по ключу (fast,slow);
//   - серия ATR по ключу (fast,slow,atrLength).
//
// За счёт этого индикаторная работа растёт с числом уникальных пар и
// троек, а не с полным произведением сетки: перебор множителей — O(1)
// дополнительной работы на множитель.
package sweep

import (
	"fmt"

	"sweep/internal"
)

type maLines struct {
	fast []float64
	slow []float64
}

// Cache — арена подвычислений одного тикера.
type Cache struct {
	candles []internal.Candle
	dir     internal.Direction

	lines     map[string]maLines
	linesErr  map[string]error
	entries   map[string]internal.SignalSeries
	entryErr  map[string]error
	atrSeries map[string][]float64
	atrErr    map[string]error

	hits   int
	misses int
}

// NewCache создаёт пустой кэш поверх серии баров. Серия на время
// прогона считается неизменяемой.
func NewCache(candles []internal.Candle, dir internal.Direction) *Cache {
	return &Cache{
		candles:   candles,
		dir:       dir,
		lines:     make(map[string]maLines),
		linesErr:  make(map[string]error),
		entries:   make(map[string]internal.SignalSeries),
		entryErr:  make(map[string]error),
		atrSeries: make(map[string][]float64),
		atrErr:    make(map[string]error),
	}
}

// CacheStats — счётчики попаданий за время жизни кэша.
type CacheStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits, Misses: c.misses}
}

// MovingAverageLines возвращает пару линий MA для (fast,slow).
// Ошибка расчёта тоже кэшируется: повторный запрос не пересчитывает.
func (c *Cache) MovingAverageLines(kind internal.StrategyKind, fast, slow int) (maLines, error) {
	if kind == internal.KindSMAWithATR {
		kind = internal.KindSMA // входы ATR-варианта — пересечение SMA
	}
	key := fmt.Sprintf("lines:%s:%d/%d", kind, fast, slow)
	if lines, ok := c.lines[key]; ok {
		c.hits++
		return lines, nil
	}
	if err, ok := c.linesErr[key]; ok {
		c.hits++
		return maLines{}, err
	}
	c.misses++

	calc := internal.CalculateSMA
	if kind == internal.KindEMA {
		calc = internal.CalculateEMA
	}

	fastLine, err := calc(c.candles, fast)
	if err == nil {
		var slowLine []float64
		if slowLine, err = calc(c.candles, slow); err == nil {
			lines := maLines{fast: fastLine, slow: slowLine}
			c.lines[key] = lines
			return lines, nil
		}
	}

	c.linesErr[key] = err
	return maLines{}, err
}

// EntrySignals возвращает входную серию MA-пересечения для (fast,slow).
// Все комбинации, разделяющие пару окон, получают один и тот же слайс.
func (c *Cache) EntrySignals(kind internal.StrategyKind, fast, slow int) (internal.SignalSeries, error) {
	if kind == internal.KindSMAWithATR {
		kind = internal.KindSMA
	}

	key := fmt.Sprintf("entry:%s:%d/%d", kind, fast, slow)
	if series, ok := c.entries[key]; ok {
		c.hits++
		return series, nil
	}
	if err, ok := c.entryErr[key]; ok {
		c.hits++
		return nil, err
	}
	c.misses++

	lines, err := c.MovingAverageLines(kind, fast, slow)
	if err != nil {
		c.entryErr[key] = err
		return nil, err
	}

	series := internal.MACrossSignals(lines.fast, lines.slow, slow-1, c.dir)
	c.entries[key] = series
	return series, nil
}

// ATRSeries возвращает серию ATR для тройки (fast,slow,atrLength).
func (c *Cache) ATRSeries(fast, slow, length int) ([]float64, error) {
	key := fmt.Sprintf("atr:%d/%d/%d", fast, slow, length)
	if atr, ok := c.atrSeries[key]; ok {
		c.hits++
		return atr, nil
	}
	if err, ok := c.atrErr[key]; ok {
		c.hits++
		return nil, err
	}
	c.misses++

	atr, err := internal.CalculateATR(c.candles, length)
	if err != nil {
		c.atrErr[key] = err
		return nil, err
	}
	c.atrSeries[key] = atr
	return atr, nil
}
