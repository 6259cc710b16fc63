package metrics

import (
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"
)

var (
	mu      sync.RWMutex
	storage tstorage.Storage

	// writeMu orders inserts; tstorage only serves points whose timestamps
	// strictly increase per metric, later equal or older ones are not selectable
	writeMu sync.Mutex
	lastTS  int64
)

// InitMetrics opens the time-series storage under dir. Calling it again
// replaces the previous storage.
func InitMetrics(dir string) error {
	st, err := tstorage.NewStorage(
		tstorage.WithDataPath(dir),
		tstorage.WithTimestampPrecision(tstorage.Nanoseconds),
		tstorage.WithRetention(7*24*time.Hour),
	)
	if err != nil {
		return errors.Wrap(err, "open metrics storage")
	}
	mu.Lock()
	old := storage
	storage = st
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// nextTimestamp returns a nanosecond timestamp greater than any handed out before.
// Callers hold writeMu.
func nextTimestamp() int64 {
	ts := time.Now().UnixNano()
	if ts <= lastTS {
		ts = lastTS + 1
	}
	lastTS = ts
	return ts
}

func insert(name string, value float64) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: nextTimestamp(), Value: value},
	}})
}

// SetGauge records the current value of a gauge
func SetGauge(name string, value int64) {
	insert(name, float64(value))
}

// Incr records one occurrence of a counter
func Incr(name string) {
	insert(name, 1)
}

// Sum adds up all points of name recorded since the given time
func Sum(name string, since time.Time) float64 {
	points := selectPoints(name, since)
	var total float64
	for _, p := range points {
		total += p.Value
	}
	return total
}

// Latest returns the most recent point of name within the last hour
func Latest(name string) (float64, bool) {
	points := selectPoints(name, time.Now().Add(-time.Hour))
	if len(points) == 0 {
		return 0, false
	}
	return points[len(points)-1].Value, true
}

func selectPoints(name string, since time.Time) []*tstorage.DataPoint {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return nil
	}
	writeMu.Lock()
	end := lastTS
	writeMu.Unlock()
	if now := time.Now().UnixNano(); now > end {
		end = now
	}
	points, err := storage.Select(name, nil, since.UnixNano(), end+1)
	if err != nil {
		return nil
	}
	return points
}

// Close flushes and closes the storage
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
