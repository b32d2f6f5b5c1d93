package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"sweep/internal"
)

const unorderedCandles = `{
  "candles": [
    {"open": 101, "high": 102, "low": 100, "close": 101.5, "volume": "120", "time": "2024-01-03T00:00:00Z", "isComplete": true},
    {"open": 100, "high": 101, "low": 99, "close": 100.5, "volume": "100", "time": "2024-01-01T00:00:00Z", "isComplete": true},
    {"open": 100.5, "high": 101.5, "low": 100, "close": 101, "volume": "110", "time": "2024-01-02T00:00:00Z", "isComplete": true}
  ]
}`

func writeTicker(t *testing.T, dir, ticker, payload string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ticker+".json"), []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoader_LoadSortsChronologically(t *testing.T) {
	dir := t.TempDir()
	writeTicker(t, dir, "TMOS", unorderedCandles)

	loader := NewLoader(dir, nil, zerolog.Nop())
	candles, err := loader.Load(context.Background(), "TMOS")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(candles) != 3 {
		t.Fatalf("Expected 3 candles, got %d", len(candles))
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].ToTime().Before(candles[i-1].ToTime()) {
			t.Errorf("Candles must be sorted chronologically, bar %d is out of order", i)
		}
	}
	// Цена в формате {units, nano} и плоское число разбираются одинаково
	if candles[0].Close.ToFloat64() != 100.5 {
		t.Errorf("Expected first close 100.5, got %.4f", candles[0].Close.ToFloat64())
	}
}

func TestLoader_MissingTickerIsTickerError(t *testing.T) {
	loader := NewLoader(t.TempDir(), nil, zerolog.Nop())

	_, err := loader.Load(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("Expected an error for a missing ticker")
	}

	var te *internal.TickerError
	if !errors.As(err, &te) {
		t.Errorf("Expected TickerError, got %T", err)
	}
	if te.Ticker != "NOPE" {
		t.Errorf("Error must carry the ticker name, got %q", te.Ticker)
	}
}

func TestLoader_SnapshotIsolatesFromLaterWrites(t *testing.T) {
	dir := t.TempDir()
	writeTicker(t, dir, "TMOS", unorderedCandles)

	loader := NewLoader(dir, nil, zerolog.Nop())
	snap, err := loader.Snapshot([]string{"TMOS"})
	if err != nil {
		t.Fatalf("Unexpected snapshot error: %v", err)
	}

	// Портим оригинал после снапшота
	writeTicker(t, dir, "TMOS", `{"candles": []}`)

	candles, err := snap.Load(context.Background(), "TMOS")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(candles) != 3 {
		t.Errorf("Snapshot must keep the original series, got %d candles", len(candles))
	}

	fresh, err := loader.Load(context.Background(), "TMOS")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(fresh) != 0 {
		t.Errorf("Non-snapshot loader must see the fresh file, got %d candles", len(fresh))
	}
}
