package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Uninitialized(t *testing.T) {
	require.NoError(t, Close())

	Incr("catalog_search")
	SetGauge("system_memuse", 10)

	_, ok := Latest("system_memuse")
	assert.False(t, ok)
	assert.Zero(t, Sum("catalog_search", time.Now().Add(-time.Minute)))
}

func TestMetrics_GaugeAndCounter(t *testing.T) {
	require.NoError(t, InitMetrics(t.TempDir()))
	defer Close()

	SetGauge("system_cpuuse", 1250)
	v, ok := Latest("system_cpuuse")
	require.True(t, ok)
	assert.Equal(t, float64(1250), v)

	Incr("catalog_search")
	Incr("catalog_search")
	Incr("catalog_search")
	assert.Equal(t, float64(3), Sum("catalog_search", time.Now().Add(-time.Minute)))
}

func TestMetrics_CountersInSameInstant(t *testing.T) {
	require.NoError(t, InitMetrics(t.TempDir()))
	defer Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				Incr("catalog_product_created")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, float64(200), Sum("catalog_product_created", time.Now().Add(-time.Minute)))

	// other metrics are unaffected
	assert.Zero(t, Sum("catalog_search", time.Now().Add(-time.Minute)))
}
