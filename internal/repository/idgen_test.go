package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextIsUniqueWithinSameMillisecond(t *testing.T) {
	frozen := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	g := &IDGenerator{now: func() time.Time { return frozen }}

	first := g.Next()
	second := g.Next()

	require.Equal(t, frozen.UnixMilli(), first)
	require.Equal(t, first+1, second)
}

func TestNextIsStrictlyIncreasingUnderConcurrency(t *testing.T) {
	g := NewIDGenerator()

	const n = 1000
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- g.Next()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		require.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
}
