package sweeper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sweep/internal"
	"sweep/internal/config"
)

func writeTestData(t *testing.T, dir, ticker string, bars int) {
	t.Helper()

	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]internal.Candle, bars)
	for i := 0; i < bars; i++ {
		mid := 100 + 0.05*float64(i) + 4*math.Sin(float64(i)/9)
		candles[i] = internal.Candle{
			Open:  internal.Price(mid - 0.5),
			High:  internal.Price(mid + 1),
			Low:   internal.Price(mid - 1),
			Close: internal.Price(mid),
			Time:  base.Add(time.Duration(i) * 24 * time.Hour).Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(internal.GetCandlesResponse{Candles: candles})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ticker+".json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T, dataDir string, tickers ...string) *config.Config {
	t.Helper()

	yaml := `
strategy_type: SMA
direction: Long
snapshot: false
grid:
  fast_from: 3
  fast_to: 9
  slow_from: 12
  slow_to: 24
  step: 3
`
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DATA_DIR", dataDir)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Unexpected config error: %v", err)
	}
	cfg.Tickers = tickers
	return cfg
}

func TestRunner_SortsByScoreAndContainsTickerErrors(t *testing.T) {
	dataDir := t.TempDir()
	writeTestData(t, dataDir, "GOOD", 150)

	cfg := testConfig(t, dataDir, "GOOD", "MISSING")
	runner, err := NewRunner(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	report, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(report.Outcomes) != 2 {
		t.Fatalf("Expected 2 outcomes, got %d", len(report.Outcomes))
	}

	for _, out := range report.Outcomes {
		switch out.Ticker {
		case "GOOD":
			if out.Err != nil {
				t.Errorf("Healthy ticker must not fail: %v", out.Err)
			}
			for i := 1; i < len(out.Results); i++ {
				if out.Results[i].Score > out.Results[i-1].Score {
					t.Errorf("Results must be sorted by score descending")
				}
			}
		case "MISSING":
			if out.Err == nil {
				t.Errorf("Missing ticker must carry an error")
			}
		}
	}
}

func TestRunner_AppliesMinimums(t *testing.T) {
	dataDir := t.TempDir()
	writeTestData(t, dataDir, "GOOD", 150)

	cfg := testConfig(t, dataDir, "GOOD")
	cfg.Minimums = map[string]float64{"total_trades": 10_000}

	runner, err := NewRunner(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	report, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out := report.Outcomes[0]
	if len(out.Results) != 0 {
		t.Errorf("Unreachable threshold must filter everything, got %d results", len(out.Results))
	}
	if report.FilteredOut["GOOD"] == 0 {
		t.Errorf("Filtered count must be reported")
	}
}

func TestServer_SweepLifecycle(t *testing.T) {
	dataDir := t.TempDir()
	writeTestData(t, dataDir, "GOOD", 150)

	cfg := testConfig(t, dataDir, "GOOD")
	runner, err := NewRunner(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	router := NewServer(cfg, runner, zerolog.Nop()).Router()

	// Health-check
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /healthz, got %d", rec.Code)
	}

	// Постановка задачи
	body := bytes.NewBufferString(`{"tickers": ["GOOD"]}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sweeps", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("Expected a job id, got %s", rec.Body.String())
	}

	// Поллинг до завершения
	deadline := time.Now().Add(10 * time.Second)
	var job Job
	for {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/sweeps/%s", created.ID), nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200 for job status, got %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			t.Fatal(err)
		}
		if job.Status == JobDone || job.Status == JobFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Job did not finish in time, status %s", job.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if job.Status != JobDone {
		t.Fatalf("Expected done job, got %s (%s)", job.Status, job.Error)
	}
	if job.Report == nil || len(job.Report.Outcomes) == 0 {
		t.Errorf("Finished job must carry a report")
	}

	// Неизвестный идентификатор
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sweeps/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown id, got %d", rec.Code)
	}
}
