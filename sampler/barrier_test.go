package sampler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBarrierReleasesAllPartiesTogether(t *testing.T) {
	const n = 4
	b := newBarrier(n)

	var before, after atomic.Int32
	var wg sync.WaitGroup
	release := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			before.Add(1)
			b.Wait()
			after.Add(1)
			<-release
		}()
	}

	require.Eventually(t, func() bool { return before.Load() == n }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
	require.Equal(t, int32(n), after.Load())
}

func TestBarrierIsReusableAcrossRounds(t *testing.T) {
	const n = 3
	const rounds = 50
	b := newBarrier(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				b.Wait()
			}
		}()
	}
	wg.Wait()
}

func TestBarrierWithSinglePartyTripsImmediately(t *testing.T) {
	b := newBarrier(1)
	done := make(chan struct{})
	go func() {
		b.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("single-party barrier did not trip")
	}
}
