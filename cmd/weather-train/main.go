package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelly-eugenia/weather-forecast/internal/bootstrap"
	"github.com/kelly-eugenia/weather-forecast/internal/config"
	"github.com/kelly-eugenia/weather-forecast/internal/forecast"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
	"github.com/kelly-eugenia/weather-forecast/internal/report"
	"github.com/kelly-eugenia/weather-forecast/internal/training"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "").Fatalf("failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := bootstrap.HistorySource(cfg)
	history, err := bootstrap.LoadStore(ctx, source, log)
	if err != nil {
		log.Fatalf("failed to load history: %v", err)
	}

	models, err := bootstrap.Registry(ctx, cfg, log)
	if err != nil {
		log.Fatalf("failed to open model registry: %v", err)
	}

	deps := forecast.Deps{Store: history, Registry: models, Log: log, Workers: cfg.Forecast.Workers}
	summary, err := training.NewRunner(deps, source.Name()).Run(ctx)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}

	for _, r := range summary.Regressions {
		log.Infof("%-26s mse=%.4f r2=%.4f (n=%d)", r.Model, r.Report.MSE, r.Report.R2, r.Report.Samples)
	}
	log.Infof("%s accuracy=%.4f\n%s", forecast.KeyWeatherTypeClassifier, summary.Classifier.Accuracy, summary.Classifier)

	if cfg.Train.ReportPath == "" {
		return
	}
	data, err := report.Generate(summary)
	if err != nil {
		log.Fatalf("failed to build training report: %v", err)
	}
	if err := os.WriteFile(cfg.Train.ReportPath, data, 0o644); err != nil {
		log.Fatalf("failed to write training report: %v", err)
	}
	log.Infof("training report written to %s", cfg.Train.ReportPath)
}
