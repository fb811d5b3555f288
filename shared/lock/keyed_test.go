package lock_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"lodge/shared/lock"
)

func TestKeyed_SerializesSameKey(t *testing.T) {
	keyed := lock.NewKeyed()

	const workers = 32

	counter := 0

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			keyed.Lock("room-1")
			defer keyed.Unlock("room-1")

			counter++
		}()
	}

	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyed_DifferentKeysDoNotBlock(t *testing.T) {
	keyed := lock.NewKeyed()

	keyed.Lock("room-1")

	done := make(chan struct{})

	go func() {
		keyed.Lock("room-2")
		keyed.Unlock("room-2")
		close(done)
	}()

	<-done

	keyed.Unlock("room-1")
}

func TestKeyed_UnlockUnheldPanics(t *testing.T) {
	keyed := lock.NewKeyed()

	assert.Panics(t, func() {
		keyed.Unlock("room-1")
	})
}
