package dedup

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_FirstSightThenDuplicate(t *testing.T) {
	g := NewGate(10)

	assert.False(t, g.Seen("Ev123_1700000000.000100"))
	assert.True(t, g.Seen("Ev123_1700000000.000100"))
	assert.True(t, g.Seen("Ev123_1700000000.000100"))
}

func TestGate_DistinctFingerprints(t *testing.T) {
	g := NewGate(10)

	assert.False(t, g.Seen("Ev1_1"))
	assert.False(t, g.Seen("Ev2_1"))
	assert.False(t, g.Seen("Ev1_2"))
	assert.Equal(t, 3, g.Len())
}

func TestGate_BoundedGrowth(t *testing.T) {
	g := NewGate(100)

	for i := 0; i < 500; i++ {
		g.Seen(fmt.Sprintf("ev-%d", i))
	}
	assert.Equal(t, 100, g.Len())
}

func TestGate_FIFOEviction(t *testing.T) {
	g := NewGate(3)

	require.False(t, g.Seen("a"))
	require.False(t, g.Seen("b"))
	require.False(t, g.Seen("c"))

	// "a" is the oldest; inserting "d" evicts it and nothing else.
	require.False(t, g.Seen("d"))
	assert.False(t, g.Seen("a"), "evicted fingerprint is processed again")
	assert.True(t, g.Seen("c"))
	assert.True(t, g.Seen("d"))
}

func TestGate_ConcurrentSameFingerprint(t *testing.T) {
	g := NewGate(10)

	const workers = 32
	var wg sync.WaitGroup
	firsts := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			firsts <- !g.Seen("same-event")
		}()
	}
	wg.Wait()
	close(firsts)

	count := 0
	for first := range firsts {
		if first {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one delivery wins")
}

func TestNewGate_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { NewGate(0) })
}
