package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_StepsFromStart(t *testing.T) {
	c := NewClock(time.Time{}, time.Minute)

	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(time.Minute), c.Now())
	assert.Equal(t, Epoch.Add(2*time.Minute), c.Now())

	c.Reset()
	assert.Equal(t, Epoch, c.Now())
}

func TestClock_ZeroStepIsFixed(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start, 0)
	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now())
}

func TestSequence_NextIncrementsMonotonically(t *testing.T) {
	var s Sequence
	assert.Equal(t, int64(0), s.Current())
	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(2), s.Next())
	assert.Equal(t, int64(2), s.Current())

	s.Reset()
	assert.Equal(t, int64(1), s.Next())
}

func TestSequence_ThreadSafe(t *testing.T) {
	var s Sequence
	const goroutines, calls = 50, 100

	var wg sync.WaitGroup
	seen := make(chan int64, goroutines*calls)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seen <- s.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for v := range seen {
		require.False(t, unique[v], "duplicate seq %d", v)
		unique[v] = true
	}
	assert.Len(t, unique, goroutines*calls)
	assert.Equal(t, int64(goroutines*calls), s.Current())
}
