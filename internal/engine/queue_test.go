package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datamod/internal/module"
)

func change(seq int64, eventType string) Change {
	return Change{Seq: seq, Event: module.Event{Type: eventType}}
}

func TestChangeQueue_FIFO(t *testing.T) {
	q := newChangeQueue()

	for i, typ := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(change(int64(i+1), typ)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.Event.Type)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
	assert.Equal(t, 0, q.Len())
}

func TestChangeQueue_EnqueueAfterClose(t *testing.T) {
	q := newChangeQueue()
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(change(1, "late")))
	assert.True(t, q.Closed())
}

func TestChangeQueue_CloseWakesWaiter(t *testing.T) {
	q := newChangeQueue()
	woke := make(chan struct{})

	go func() {
		<-q.Wait()
		close(woke)
	}()

	q.Close()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by close")
	}
}

func TestChangeQueue_SignalCoalesces(t *testing.T) {
	q := newChangeQueue()
	q.Enqueue(change(1, "A"))
	q.Enqueue(change(2, "B"))

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending signal")
	}
	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce into one")
	default:
	}
	assert.Equal(t, 2, q.Len())
}

func TestChangeQueue_ConcurrentProducers(t *testing.T) {
	q := newChangeQueue()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(change(int64(p*perProducer+i), "X"))
			}
		}(p)
	}
	wg.Wait()

	n := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*perProducer, n)
}
