package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/kelly-eugenia/weather-forecast/internal/api/http"
	"github.com/kelly-eugenia/weather-forecast/internal/bootstrap"
	"github.com/kelly-eugenia/weather-forecast/internal/common"
	"github.com/kelly-eugenia/weather-forecast/internal/config"
	"github.com/kelly-eugenia/weather-forecast/internal/forecast"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
	"github.com/kelly-eugenia/weather-forecast/internal/scheduler"
	"github.com/kelly-eugenia/weather-forecast/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "").Fatalf("failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared, read-only history snapshot.
	source := bootstrap.HistorySource(cfg)
	history, err := bootstrap.LoadStore(ctx, source, log)
	if err != nil {
		log.Fatalf("failed to load history: %v", err)
	}

	models, err := bootstrap.Registry(ctx, cfg, log)
	if err != nil {
		log.Fatalf("failed to open model registry: %v", err)
	}
	missing, err := models.Missing(ctx, forecast.AllKeys...)
	if err != nil {
		log.Fatalf("failed to check model registry: %v", err)
	}
	if len(missing) > 0 {
		log.WithField("missing", missing).Error("models not trained; affected endpoints will return 503 until weather-train runs")
	}

	deps := forecast.Deps{Store: history, Registry: models, Log: log, Workers: cfg.Forecast.Workers}
	service := weather.NewService(
		forecast.NewTemperatureForecaster(deps),
		forecast.NewPrecipitationForecaster(deps),
		forecast.NewWeatherTypeClassifier(deps),
		log,
		cfg.Forecast.Workers,
	)

	// Scheduler that periodically refreshes history and rotated models.
	reloader := scheduler.NewReloader(source, history, models, log)
	sched := scheduler.New(cfg.Reload.Interval, cfg.History.Timeout, reloader.Reload, log)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowCredentials: cfg.CORS.AllowOrigins != "*",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		first, last, _ := history.Span()
		return c.JSON(fiber.Map{
			"status":       "ok",
			"service":      "weather-forecast",
			"history_rows": history.Len(),
			"history_from": first.Format(common.DateLayout),
			"history_to":   last.Format(common.DateLayout),
		})
	})

	httpapi.RegisterRoutes(app, service, time.Now)

	go func() {
		log.Infof("listening on %s", cfg.Addr())
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Errorf("fiber server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
	log.Info("server stopped")
}
