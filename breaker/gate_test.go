package breaker

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_CapacityBound(t *testing.T) {
	g := newGate(2)

	assert.True(t, g.tryAcquire())
	assert.True(t, g.tryAcquire())
	assert.False(t, g.tryAcquire())
	assert.Equal(t, int64(2), g.pending())

	g.release()
	assert.Equal(t, int64(1), g.pending())
	assert.True(t, g.tryAcquire())
}

func TestGate_PendingNeverNegative(t *testing.T) {
	g := newGate(4)

	assert.True(t, g.tryAcquire())
	g.release()
	assert.Equal(t, int64(0), g.pending())
}

func TestGate_ConcurrentAcquire(t *testing.T) {
	const capacity = 8
	const callers = 64
	g := newGate(capacity)

	var admitted, rejected int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.tryAcquire() {
				mu.Lock()
				admitted++
				mu.Unlock()
			} else {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(capacity), admitted)
	assert.Equal(t, int64(callers-capacity), rejected)
	assert.Equal(t, int64(capacity), g.pending())

	for i := 0; i < capacity; i++ {
		g.release()
	}
	assert.Equal(t, int64(0), g.pending())
}

func TestGate_ConcurrentChurn(t *testing.T) {
	const capacity = 4
	const callers = 16
	const rounds = 500
	g := newGate(capacity)

	var violations atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if !g.tryAcquire() {
					continue
				}
				// 持有槽位期间在途数必须落在 [1, capacity]
				if p := g.pending(); p < 1 || p > capacity {
					violations.Add(1)
				}
				g.release()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, violations.Load())
	assert.Equal(t, int64(0), g.pending())
}
