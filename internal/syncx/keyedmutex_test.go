package syncx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("rel-1")
			defer km.Unlock("rel-1")
			counter++
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}

func TestKeyedMutex_IndependentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()
	km.Lock("a")
	defer km.Unlock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
}

func TestKeyedMutex_EntriesAreReclaimed(t *testing.T) {
	km := NewKeyedMutex()
	km.Lock("x")
	km.Unlock("x")

	km.mu.Lock()
	defer km.mu.Unlock()
	require.Empty(t, km.locks)
}
