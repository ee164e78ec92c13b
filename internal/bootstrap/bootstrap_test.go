package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelly-eugenia/weather-forecast/internal/config"
	"github.com/kelly-eugenia/weather-forecast/internal/history"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
	"github.com/kelly-eugenia/weather-forecast/internal/registry"
)

const header = "Date,MinTemp,MaxTemp,9amTemp,3pmTemp,Precipitation,MaxWindSpeed,9amCloud,3pmCloud,9amHumidity,3pmHumidity,Sunshine,WeatherType\n"

func TestHistorySource_PicksByLocation(t *testing.T) {
	cfg := &config.Config{History: config.HistoryConfig{Source: "https://example.com/data.csv"}}
	_, ok := HistorySource(cfg).(*history.HTTPSource)
	assert.True(t, ok)

	cfg.History.Source = "data/new_merged_data.csv"
	assert.Equal(t, history.FileSource{Path: "data/new_merged_data.csv"}, HistorySource(cfg))
}

func TestLoadStore(t *testing.T) {
	var b strings.Builder
	b.WriteString(header)
	for d := 1; d <= 10; d++ {
		fmt.Fprintf(&b, "2024-03-%02d,10,20,12,18,0,30,4,5,70,50,8,Sunny\n", d)
	}
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	st, err := LoadStore(context.Background(), history.FileSource{Path: path}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Len())
}

func TestLoadStore_RejectsUnusableHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+"2024-03-01,10,20,12,18,0,30,4,5,70,50,8,Sunny\n"), 0o644))

	_, err := LoadStore(context.Background(), history.FileSource{Path: path}, logger.Discard())
	assert.Error(t, err)
}

func TestRegistry_FileBackend(t *testing.T) {
	cfg := &config.Config{Registry: config.RegistryConfig{Backend: config.BackendFS, Dir: t.TempDir()}}

	reg, err := Registry(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)

	_, err = reg.Load(context.Background(), "temperature_regression")
	assert.ErrorIs(t, err, registry.ErrModelNotFound)
}

func TestRegistry_UnknownBackend(t *testing.T) {
	cfg := &config.Config{Registry: config.RegistryConfig{Backend: "tape"}}

	_, err := Registry(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}
