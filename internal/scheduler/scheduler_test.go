package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelly-eugenia/weather-forecast/internal/logger"
	"github.com/kelly-eugenia/weather-forecast/internal/store"
)

type stringSource struct {
	body string
	err  error
}

func (s stringSource) Name() string { return "memory" }

func (s stringSource) Open(context.Context) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

type countingCache struct{ reloads atomic.Int32 }

func (c *countingCache) Reload() { c.reloads.Add(1) }

func historyCSV(days int) string {
	var b strings.Builder
	b.WriteString("Date,MinTemp,MaxTemp,9amTemp,3pmTemp,Precipitation,MaxWindSpeed,9amCloud,3pmCloud,9amHumidity,3pmHumidity,Sunshine,WeatherType\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		fmt.Fprintf(&b, "%s,%d,%d,%d,%d,0.%d,30,4,5,70,50,8,Sunny\n",
			start.AddDate(0, 0, i).Format("2006-01-02"), 10+i%5, 20+i%5, 13+i%5, 18+i%5, i%10)
	}
	return b.String()
}

func TestReloader_ReplacesSnapshotAndClearsCache(t *testing.T) {
	snapshot := store.NewMemoryStore(nil)
	cache := &countingCache{}
	r := NewReloader(stringSource{body: historyCSV(20)}, snapshot, cache, logger.Discard())

	require.NoError(t, r.Reload(context.Background()))
	assert.Equal(t, 13, snapshot.Len()) // first 7 days only warm up the window
	assert.Equal(t, int32(1), cache.reloads.Load())
}

func TestReloader_KeepsPreviousSnapshotOnFailure(t *testing.T) {
	snapshot := store.NewMemoryStore(nil)
	cache := &countingCache{}
	good := NewReloader(stringSource{body: historyCSV(20)}, snapshot, cache, logger.Discard())
	require.NoError(t, good.Reload(context.Background()))

	broken := NewReloader(stringSource{err: errors.New("unreachable")}, snapshot, cache, logger.Discard())
	assert.Error(t, broken.Reload(context.Background()))

	empty := NewReloader(stringSource{body: historyCSV(5)}, snapshot, cache, logger.Discard())
	assert.Error(t, empty.Reload(context.Background()))

	assert.Equal(t, 13, snapshot.Len())
	assert.Equal(t, int32(1), cache.reloads.Load())
}

func TestScheduler_RunsJobPeriodically(t *testing.T) {
	var runs atomic.Int32
	s := New(20*time.Millisecond, time.Second, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		runs.Add(1)
		return nil
	}, logger.Discard())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_ZeroIntervalDisablesJob(t *testing.T) {
	var runs atomic.Int32
	s := New(0, time.Second, func(context.Context) error {
		runs.Add(1)
		return nil
	}, logger.Discard())

	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}
