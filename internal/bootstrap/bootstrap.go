// Package bootstrap builds the dependencies shared by the server and the
// trainer from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kelly-eugenia/weather-forecast/internal/common"
	"github.com/kelly-eugenia/weather-forecast/internal/config"
	"github.com/kelly-eugenia/weather-forecast/internal/history"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
	"github.com/kelly-eugenia/weather-forecast/internal/registry"
	"github.com/kelly-eugenia/weather-forecast/internal/store"
)

// HistorySource returns the configured dataset source. Remote sources share
// one HTTP client bounded by the history timeout.
func HistorySource(cfg *config.Config) history.Source {
	client := &http.Client{Timeout: cfg.History.Timeout}
	return history.NewSource(cfg.History.Source, client)
}

// LoadStore reads src and returns a store holding its feature rows.
func LoadStore(ctx context.Context, src history.Source, log logger.Logger) (*store.MemoryStore, error) {
	rows, err := history.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s yielded no usable rows", src.Name())
	}

	st := store.NewMemoryStore(rows)
	first, last, _ := st.Span()
	log.WithFields(map[string]interface{}{
		"source": src.Name(),
		"rows":   st.Len(),
		"first":  first.Format(common.DateLayout),
		"last":   last.Format(common.DateLayout),
	}).Info("history loaded")
	return st, nil
}

// Registry opens the configured artifact backend.
func Registry(ctx context.Context, cfg *config.Config, log logger.Logger) (*registry.Registry, error) {
	switch cfg.Registry.Backend {
	case config.BackendMinio:
		backend, err := registry.NewMinioBackend(ctx, registry.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		log.Infof("using minio registry %s/%s", cfg.Minio.Endpoint, cfg.Minio.Bucket)
		return registry.New(backend, log), nil
	case config.BackendFS:
		log.Infof("using file registry %s", cfg.Registry.Dir)
		return registry.New(registry.NewFileBackend(cfg.Registry.Dir), log), nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Registry.Backend)
	}
}
