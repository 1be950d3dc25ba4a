package services

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLock(t *testing.T) {
	l := newKeyedLock()

	release, ok := l.TryAcquire("p1")
	require.True(t, ok)
	assert.True(t, l.Held("p1"))

	_, ok = l.TryAcquire("p1")
	assert.False(t, ok, "second holder must be refused")

	other, ok := l.TryAcquire("p2")
	require.True(t, ok, "keys are independent")
	other()

	release()
	release()
	assert.False(t, l.Held("p1"))

	again, ok := l.TryAcquire("p1")
	require.True(t, ok)
	again()
}

func TestKeyedLock_SingleWinner(t *testing.T) {
	l := newKeyedLock()

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := l.TryAcquire("p"); ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
