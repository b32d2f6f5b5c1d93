package sweeper

import (
	"time"

	"sweep/internal"
	"sweep/internal/sweep"
)

// Report — итог одного запуска перебора по всем тикерам.
type Report struct {
	Strategy  internal.StrategyKind `json:"strategy"`
	Direction internal.Direction    `json:"direction"`

	Outcomes []sweep.SweepOutcome `json:"outcomes"`

	// Записи, отсечённые порогами MINIMUMS, по тикерам
	FilteredOut map[string]int `json:"filtered_out,omitempty"`

	SnapshotUsed bool          `json:"snapshot_used"`
	StartedAt    time.Time     `json:"started_at"`
	Elapsed      time.Duration `json:"elapsed"`
}

// ResultPrinter — вывод отчёта в консоль.
type ResultPrinter interface {
	PrintReport(report *Report, topN int)
}

// ResultSaver — сохранение отчёта на диск.
type ResultSaver interface {
	Save(report *Report, dir string) error
}
