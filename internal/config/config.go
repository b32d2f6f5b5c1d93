// config.go
// Конфигурация перебора: значения по умолчанию ← YAML-файл ← переменные
// окружения. Разбор и валидация выполняются один раз на старте; дальше
// по коду конфигурация только читается.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"sweep/internal"
	"sweep/internal/sweep"
)

// SourceConfig — сетевой источник свечей. Пустой Endpoint отключает
// догрузку: работаем только с локальными файлами.
type SourceConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"-"` // только из окружения, в файле не хранится
	Interval string `yaml:"interval"`
}

// Config — полная конфигурация запуска.
type Config struct {
	StrategyType string   `yaml:"strategy_type"`
	Direction    string   `yaml:"direction"`
	Tickers      []string `yaml:"tickers"`

	Grid sweep.Grid `yaml:"grid"`

	FeeRate    float64 `yaml:"fee_rate"`
	StopLoss   float64 `yaml:"stop_loss"`
	UseHourly  bool    `yaml:"use_hourly"`
	AlwaysOpen bool    `yaml:"always_open"`

	PoolSize int  `yaml:"pool_size"`
	Snapshot bool `yaml:"snapshot"`

	Minimums map[string]float64 `yaml:"minimums"`

	DataDir   string       `yaml:"data_dir"`
	OutputDir string       `yaml:"output_dir"`
	Listen    string       `yaml:"listen"`
	Source    SourceConfig `yaml:"source"`

	kind internal.StrategyKind
	dir  internal.Direction
}

// knownMinimums — ключи, которые понимает фильтр порогов.
var knownMinimums = map[string]bool{
	"win_rate":      true,
	"total_trades":  true,
	"profit_factor": true,
	"expectancy":    true,
	"sortino":       true,
	"total_return":  true,
}

func defaults() *Config {
	return &Config{
		StrategyType: "SMA",
		Direction:    "Long",
		Grid:         sweep.DefaultGrid(),
		FeeRate:      0.0005,
		Snapshot:     true,
		DataDir:      "data",
		OutputDir:    "results",
		Listen:       ":8080",
	}
}

// Load читает конфигурацию. Отсутствие YAML-файла не ошибка: значения
// по умолчанию плюс окружение — полноценная конфигурация.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", path)
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("STRATEGY_TYPE"); v != "" {
		c.StrategyType = v
	}
	if v := os.Getenv("DIRECTION"); v != "" {
		c.Direction = v
	}
	if v := os.Getenv("TICKERS"); v != "" {
		c.Tickers = splitList(v)
	}
	if v := os.Getenv("STEP"); v != "" {
		step, err := strconv.Atoi(v)
		if err != nil {
			return internal.NewConfigurationErrorf("STEP must be an integer, got %q", v)
		}
		c.Grid.Step = step
	}
	if v := os.Getenv("MINIMUMS"); v != "" {
		minimums, err := ParseMinimums(v)
		if err != nil {
			return err
		}
		c.Minimums = minimums
	}
	if v := os.Getenv("USE_HOURLY"); v != "" {
		c.UseHourly = isTruthy(v)
	}
	if v := os.Getenv("ALWAYS_OPEN"); v != "" {
		c.AlwaysOpen = isTruthy(v)
	}
	if v := os.Getenv("FEE_RATE"); v != "" {
		fee, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return internal.NewConfigurationErrorf("FEE_RATE must be a number, got %q", v)
		}
		c.FeeRate = fee
	}
	if v := os.Getenv("STOP_LOSS"); v != "" {
		sl, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return internal.NewConfigurationErrorf("STOP_LOSS must be a number, got %q", v)
		}
		c.StopLoss = sl
	}
	if v := os.Getenv("POOL_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return internal.NewConfigurationErrorf("POOL_SIZE must be an integer, got %q", v)
		}
		c.PoolSize = size
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("SOURCE_ENDPOINT"); v != "" {
		c.Source.Endpoint = v
	}
	if v := os.Getenv("SOURCE_TOKEN"); v != "" {
		c.Source.Token = v
	}
	return nil
}

// Validate разбирает строковые поля в типизированные и проверяет
// инварианты. Вызывается один раз из Load.
func (c *Config) Validate() error {
	kind, err := internal.ParseStrategyKind(c.StrategyType)
	if err != nil {
		return err
	}
	c.kind = kind

	dir, err := internal.ParseDirection(c.Direction)
	if err != nil {
		return err
	}
	c.dir = dir

	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if err := c.Options().Validate(); err != nil {
		return err
	}

	for key := range c.Minimums {
		if !knownMinimums[key] {
			return internal.NewConfigurationErrorf("unknown minimums key %q", key)
		}
	}
	return nil
}

// Kind — разобранный STRATEGY_TYPE.
func (c *Config) Kind() internal.StrategyKind { return c.kind }

// TradeDirection — разобранный DIRECTION.
func (c *Config) TradeDirection() internal.Direction { return c.dir }

// Options — сквозные настройки перебора.
func (c *Config) Options() internal.Options {
	return internal.Options{
		Direction:  c.dir,
		FeeRate:    c.FeeRate,
		StopLoss:   c.StopLoss,
		Hourly:     c.UseHourly,
		AlwaysOpen: c.AlwaysOpen,
	}
}

// ParseMinimums разбирает строку вида "win_rate=0.4,total_trades=10".
func ParseMinimums(s string) (map[string]float64, error) {
	minimums := make(map[string]float64)
	for _, part := range splitList(s) {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return nil, internal.NewConfigurationErrorf("minimums entry %q must look like key=value", part)
		}
		key = strings.TrimSpace(key)
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, internal.NewConfigurationErrorf("minimums value for %q must be a number, got %q", key, value)
		}
		minimums[key] = v
	}
	return minimums, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
