package observability

import (
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestSweepMonitor_Snapshot(t *testing.T) {
	req := require.New(t)
	monitor := NewSweepMonitor(logs.GetLoggerFromLevel(slog.LevelDebug))

	// Given nothing swept yet
	empty := monitor.Snapshot()
	req.Zero(empty.Sweeps)
	req.Nil(empty.LastSweepAt)

	// When
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	monitor.IncrEvictions()
	monitor.IncrEvictions()
	monitor.IncrEvictionFailures()
	monitor.RecordSweep(at, 25*time.Millisecond)

	// Then
	stats := monitor.Snapshot()
	req.Equal(uint64(1), stats.Sweeps)
	req.Equal(uint64(2), stats.Evictions)
	req.Equal(uint64(1), stats.EvictionFailures)
	req.NotNil(stats.LastSweepAt)
	req.Equal(at, *stats.LastSweepAt)
	req.Equal(int64(25), stats.LastSweepMs)
	req.Positive(stats.Goroutines)
}
