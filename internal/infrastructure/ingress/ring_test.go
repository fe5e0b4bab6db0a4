package ingress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRingBuffer_RoundsUpToPowerOfTwo(t *testing.T) {
	assert.Equal(t, 2, NewRingBuffer[int](0).Cap())
	assert.Equal(t, 2, NewRingBuffer[int](1).Cap())
	assert.Equal(t, 8, NewRingBuffer[int](5).Cap())
	assert.Equal(t, 1024, NewRingBuffer[int](1024).Cap())
}

func TestRingBuffer_FIFOAndBounded(t *testing.T) {
	r := NewRingBuffer[int](4)

	for i := 0; i < 4; i++ {
		require.True(t, r.Enqueue(i))
	}
	assert.False(t, r.Enqueue(99), "enqueue into a full ring must fail")
	assert.Equal(t, 4, r.Len())

	for i := 0; i < 4; i++ {
		v, ok := r.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := r.Dequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRingBuffer_WrapsAround(t *testing.T) {
	r := NewRingBuffer[int](2)

	for i := 0; i < 100; i++ {
		require.True(t, r.Enqueue(i))
		v, ok := r.Dequeue()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestRingBuffer_ConcurrentProducersConsumers(t *testing.T) {
	const (
		producers = 8
		perProd   = 2000
	)
	r := NewRingBuffer[int](64)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				for !r.Enqueue(base + i) {
				}
			}
		}(p * perProd)
	}

	seen := make([]bool, producers*perProd)
	var mu sync.Mutex
	var consumers sync.WaitGroup
	remaining := producers * perProd
	for c := 0; c < 4; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				mu.Lock()
				if remaining == 0 {
					mu.Unlock()
					return
				}
				mu.Unlock()

				v, ok := r.Dequeue()
				if !ok {
					continue
				}
				mu.Lock()
				seen[v] = true
				remaining--
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	consumers.Wait()

	for i, ok := range seen {
		require.True(t, ok, "item %d was lost", i)
	}
}
