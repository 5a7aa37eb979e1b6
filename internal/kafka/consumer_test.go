package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

// FetchMessage serves the queued messages, then blocks until ctx ends.
func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.committed))
	for _, m := range r.committed {
		out = append(out, m.Offset)
	}
	return out
}

type attemptCounter struct {
	mu sync.Mutex
	n  map[int64]int
}

func (a *attemptCounter) inc(off int64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.n == nil {
		a.n = map[int64]int{}
	}
	a.n[off]++
	return a.n[off]
}

func (a *attemptCounter) get(off int64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n[off]
}

func startConsumer(t *testing.T, c *Consumer, h Handler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestConsumer_RetriesFailedMessageBeforeCommittingNext(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Partition: 0, Offset: 10, Value: []byte("a")},
		{Partition: 0, Offset: 11, Value: []byte("b")},
	}}
	c := NewConsumerWithReader(r, 4, zaptest.NewLogger(t))
	c.retryBackoff = time.Millisecond

	var attempts attemptCounter
	cancel, done := startConsumer(t, c, func(_ context.Context, m kafka.Message) error {
		if attempts.inc(m.Offset) == 1 && m.Offset == 10 {
			return errors.New("smtp unavailable")
		}
		return nil
	})

	require.Eventually(t, func() bool { return len(r.commits()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, []int64{10, 11}, r.commits())
	require.Equal(t, 2, attempts.get(10))
	require.Equal(t, 1, attempts.get(11))
	require.True(t, r.closed)
}

func TestConsumer_PartitionsCommitInOrder(t *testing.T) {
	var msgs []kafka.Message
	for off := int64(0); off < 20; off++ {
		msgs = append(msgs, kafka.Message{Partition: int(off % 3), Offset: off})
	}
	r := &fakeReader{msgs: msgs}
	c := NewConsumerWithReader(r, 2, nil)
	c.retryBackoff = time.Millisecond

	var attempts attemptCounter
	cancel, done := startConsumer(t, c, func(_ context.Context, m kafka.Message) error {
		if attempts.inc(m.Offset) == 1 && m.Offset%4 == 0 {
			return errors.New("transient")
		}
		return nil
	})

	require.Eventually(t, func() bool { return len(r.commits()) == 20 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	last := map[int]int64{}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.committed {
		if prev, ok := last[m.Partition]; ok {
			require.Greater(t, m.Offset, prev, "partition %d out of order", m.Partition)
		}
		last[m.Partition] = m.Offset
	}
}

func TestConsumer_CancelDuringRetryLeavesOffsetUncommitted(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Partition: 0, Offset: 7}}}
	c := NewConsumerWithReader(r, 1, zaptest.NewLogger(t))
	c.retryBackoff = time.Millisecond
	c.maxBackoff = 2 * time.Millisecond

	var attempts attemptCounter
	cancel, done := startConsumer(t, c, func(_ context.Context, m kafka.Message) error {
		attempts.inc(m.Offset)
		return errors.New("still down")
	})

	require.Eventually(t, func() bool { return attempts.get(7) >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.Empty(t, r.commits())
}

func TestConsumer_FetchErrorStops(t *testing.T) {
	boom := errors.New("broker gone")
	c := NewConsumerWithReader(failingReader{err: boom}, 1, nil)
	require.ErrorIs(t, c.Start(context.Background(), func(context.Context, kafka.Message) error { return nil }), boom)
}

type failingReader struct {
	MessageReader
	err error
}

func (f failingReader) FetchMessage(context.Context) (kafka.Message, error) {
	return kafka.Message{}, f.err
}

func (failingReader) Close() error { return nil }
