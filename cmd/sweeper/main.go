// main.go — разовый прогон перебора параметров: загрузка свечей, сетка,
// таблица лучших комбинаций и сохранение отчёта.
package main

import (
	"context"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"sweep/internal/app/sweeper"
	"sweep/internal/config"
)

func main() {
	configPath := flag.String("config", "sweep.yaml", "путь к YAML-конфигурации")
	tickersFlag := flag.String("tickers", "", "список тикеров через запятую (переопределяет конфигурацию)")
	topN := flag.Int("top", 10, "сколько лучших комбинаций показывать на тикер")
	noSave := flag.Bool("no-save", false, "не сохранять отчёт на диск")
	debug := flag.Bool("debug", false, "подробное логирование")
	pprofAddr := flag.String("pprof", "", "адрес pprof-сервера, например localhost:6060")
	flag.Parse()

	// .env опционален: боевое окружение задаёт переменные напрямую
	_ = godotenv.Load()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	if *pprofAddr != "" {
		go func() {
			log.Info().Str("addr", *pprofAddr).Msg("pprof listening")
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				log.Warn().Err(err).Msg("pprof server stopped")
			}
		}()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("configuration rejected")
	}

	runner, err := sweeper.NewRunner(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build sweep pipeline")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tickers []string
	if *tickersFlag != "" {
		for _, t := range strings.Split(*tickersFlag, ",") {
			if trimmed := strings.TrimSpace(t); trimmed != "" {
				tickers = append(tickers, trimmed)
			}
		}
	}

	report, err := runner.Run(ctx, tickers)
	if err != nil {
		log.Fatal().Err(err).Msg("sweep failed")
	}

	sweeper.NewConsolePrinter().PrintReport(report, *topN)

	if !*noSave {
		if err := sweeper.NewFileSaver().Save(report, cfg.OutputDir); err != nil {
			log.Error().Err(err).Msg("failed to save report")
			os.Exit(1)
		}
	}
}
