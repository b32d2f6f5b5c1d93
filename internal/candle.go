// candle.go
package internal

import (
	"encoding/json"
	"log"
	"strconv"
	"time"
)

type Price float64

// UnmarshalJSON реализует пользовательский разбор JSON для Price.
// Преобразует объект {"units": "", "nano": 0} в float64 на этапе загрузки.
func (p *Price) UnmarshalJSON(data []byte) error {
	// Сначала пробуем обычное число — большинство источников отдают именно его
	var plain float64
	if err := json.Unmarshal(data, &plain); err == nil {
		*p = Price(plain)
		return nil
	}

	var temp struct {
		Units string `json:"units"`
		Nano  int32  `json:"nano"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	units, err := strconv.ParseInt(temp.Units, 10, 64)
	if err != nil {
		return err
	}
	*p = Price(float64(units) + float64(temp.Nano)/1_000_000_000.0)
	return nil
}

// ToFloat64 возвращает значение Price как float64.
func (p Price) ToFloat64() float64 {
	return float64(p)
}

// Candle — один бар исторических данных. Последовательность баров
// упорядочена по времени и после загрузки не изменяется.
type Candle struct {
	Open        Price     `json:"open"`
	High        Price     `json:"high"`
	Low         Price     `json:"low"`
	Close       Price     `json:"close"`
	Volume      string    `json:"volume"`
	VolumeFloat float64   `json:"-"` // precomputed float64 volume for performance
	Time        string    `json:"time"`
	IsComplete  bool      `json:"isComplete"`
	ParsedTime  time.Time `json:"-"` // precomputed time for ToTime()
}

// UnmarshalJSON реализует пользовательский разбор JSON для Candle.
// Вызывается автоматически при json.Unmarshal для каждого элемента массива []Candle.
func (c *Candle) UnmarshalJSON(data []byte) error {
	type Alias Candle // алиас для избежания бесконечной рекурсии
	aux := &struct {
		Time   string `json:"time"`
		Volume string `json:"volume"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Парсим время один раз и сохраняем в precomputed поле
	c.ParsedTime = ParseCandleTime(aux.Time)
	c.Time = aux.Time

	// Преобразуем Volume из string в float64 один раз при загрузке
	c.Volume = aux.Volume
	if aux.Volume == "" {
		c.VolumeFloat = 0.0
		return nil
	}
	vol, err := strconv.ParseInt(aux.Volume, 10, 64)
	if err != nil {
		c.VolumeFloat = 0.0 // некорректный объём не должен ронять загрузку
		return nil
	}
	c.VolumeFloat = float64(vol)
	return nil
}

// ParseCandleTime пробует известные форматы времени по очереди.
// Невалидная строка даёт zero time — загрузка продолжается.
func ParseCandleTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	log.Printf("❌ Все форматы времени провалились для: '%s', используем zero time", s)
	return time.Time{}
}

func (c Candle) ToTime() time.Time {
	if c.ParsedTime.IsZero() && c.Time != "" {
		return ParseCandleTime(c.Time)
	}
	return c.ParsedTime
}

// GetCandlesResponse — ответ API источника свечей
type GetCandlesResponse struct {
	Candles []Candle `json:"candles"`
}

// CandlesRequest — тело запроса к /GetCandles
type CandlesRequest struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Interval     string `json:"interval"`
	InstrumentId string `json:"instrumentId"`
	Limit        int    `json:"limit"`
}

// ClosePrices извлекает цены закрытия — большинству индикаторов нужен
// именно этот срез.
func ClosePrices(candles []Candle) []float64 {
	prices := make([]float64, len(candles))
	for i, candle := range candles {
		prices[i] = candle.Close.ToFloat64()
	}
	return prices
}
