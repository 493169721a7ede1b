package buffer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]int
	err     error
}

func (f *fakeSink) sink(_ context.Context, batch []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	copied := make([]int, len(batch))
	copy(copied, batch)
	f.batches = append(f.batches, copied)
	return nil
}

func (f *fakeSink) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSink) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeSink) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestFlushEmptyBufferDoesNothing(t *testing.T) {
	sink := &fakeSink{}
	b := New[int]("test", 10, sink.sink, zap.NewNop())

	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, 0, sink.batchCount())
}

func TestTimerFlushDeliversEverything(t *testing.T) {
	sink := &fakeSink{}
	b := New[int]("test", 100, sink.sink, zap.NewNop())

	for i := 0; i < 7; i++ {
		b.Push(i)
	}
	require.NoError(t, b.Flush(context.Background()))

	assert.Equal(t, 1, sink.batchCount())
	assert.Equal(t, 7, sink.total())
	assert.Equal(t, 0, b.Depth())
}

func TestSizeTriggerFlushesOnceAtThreshold(t *testing.T) {
	sink := &fakeSink{}
	b := New[int]("test", 500, sink.sink, zap.NewNop())

	for i := 0; i < 501; i++ {
		b.Push(i)
	}

	waitFor(t, func() bool { return sink.batchCount() >= 1 })
	// The size-triggered flush swaps out whatever is staged when it runs, so
	// the 501st record is either in that one batch or still staged.
	waitFor(t, func() bool { return b.Depth() == 501-sink.total() })
	assert.Equal(t, 1, sink.batchCount())
	assert.GreaterOrEqual(t, sink.total(), 500)
}

func TestConcurrentPushesCrossingThresholdScheduleOneFlush(t *testing.T) {
	sink := &fakeSink{}
	b := New[int]("test", 50, sink.sink, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			b.Push(v)
		}(i)
	}
	wg.Wait()

	waitFor(t, func() bool { return sink.total()+b.Depth() == 50 && b.Depth() < 50 })
	assert.Equal(t, 1, sink.batchCount())
}

func TestFailedFlushRequeuesBatchInOrder(t *testing.T) {
	sink := &fakeSink{}
	b := New[int]("test", 100, sink.sink, zap.NewNop())

	for i := 0; i < 5; i++ {
		b.Push(i)
	}

	sink.setErr(errors.New("db down"))
	err := b.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 5, b.Depth())

	// Records pushed between the failure and the retry stay behind the
	// re-queued batch.
	b.Push(5)

	sink.setErr(nil)
	require.NoError(t, b.Flush(context.Background()))
	require.Equal(t, 1, sink.batchCount())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, sink.batches[0])
	assert.Equal(t, 0, b.Depth())
}

func TestTransientFailureLosesNothing(t *testing.T) {
	sink := &fakeSink{}
	b := New[int]("test", 1000, sink.sink, zap.NewNop())

	for i := 0; i < 100; i++ {
		b.Push(i)
	}

	sink.setErr(errors.New("timeout"))
	require.Error(t, b.Flush(context.Background()))

	sink.setErr(nil)
	require.NoError(t, b.Flush(context.Background()))

	assert.Equal(t, 100, sink.total())
	assert.Equal(t, 0, b.Depth())
}

func TestPushDuringFlushLandsSomewhere(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	var delivered []int

	slow := func(_ context.Context, batch []int) error {
		close(started)
		<-release
		mu.Lock()
		delivered = append(delivered, batch...)
		mu.Unlock()
		return nil
	}

	b := New[int]("test", 1000, slow, zap.NewNop())
	b.Push(1)

	done := make(chan error, 1)
	go func() { done <- b.Flush(context.Background()) }()

	<-started
	b.Push(2) // concurrent with the in-flight flush
	close(release)
	require.NoError(t, <-done)

	mu.Lock()
	inBatch := len(delivered)
	mu.Unlock()
	assert.Equal(t, 2, inBatch+b.Depth())
}
