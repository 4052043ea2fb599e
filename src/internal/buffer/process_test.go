// FILE: scribelog/src/internal/buffer/process_test.go
package buffer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scribelog/src/internal/core"
	"scribelog/src/internal/gelf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(n int) []*gelf.Message {
	msgs := make([]*gelf.Message, n)
	for i := range msgs {
		msgs[i] = gelf.NewMessage(map[string]any{
			gelf.FieldHost:         "h",
			gelf.FieldShortMessage: fmt.Sprintf("m%d", i),
		})
	}
	return msgs
}

func TestNew(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)

	b, err := New(8)
	require.NoError(t, err)
	assert.Equal(t, 8, b.Capacity())
	assert.Equal(t, 8, b.FreeSpace())
	assert.True(t, b.Processing())
}

func TestProcessBuffer_TryOffer(t *testing.T) {
	t.Run("AllOrNothing", func(t *testing.T) {
		b, err := New(5)
		require.NoError(t, err)

		assert.Equal(t, core.OfferAccepted, b.TryOffer(messages(3)))
		assert.Equal(t, 2, b.FreeSpace())

		assert.Equal(t, core.OfferOverCapacity, b.TryOffer(messages(3)))
		assert.Equal(t, 2, b.FreeSpace(), "rejected offer must not reserve slots")
		assert.Equal(t, 3, b.Len())

		assert.Equal(t, core.OfferAccepted, b.TryOffer(messages(2)))
		assert.Equal(t, 0, b.FreeSpace())
	})

	t.Run("Empty", func(t *testing.T) {
		b, err := New(1)
		require.NoError(t, err)
		assert.Equal(t, core.OfferAccepted, b.TryOffer(nil))
		assert.Equal(t, 0, b.Len())
	})

	t.Run("Paused", func(t *testing.T) {
		b, err := New(4)
		require.NoError(t, err)

		b.Pause()
		assert.False(t, b.Processing())
		assert.Equal(t, core.OfferProcessingDisabled, b.TryOffer(messages(1)))
		assert.Equal(t, 4, b.FreeSpace())

		b.Resume()
		assert.Equal(t, core.OfferAccepted, b.TryOffer(messages(1)))

		stats := b.Stats()
		assert.Equal(t, uint64(1), stats.TotalDisabled)
		assert.Equal(t, uint64(1), stats.TotalAccepted)
		assert.Equal(t, 1, stats.Used)
	})
}

func TestProcessBuffer_Next(t *testing.T) {
	t.Run("FIFOAndRelease", func(t *testing.T) {
		b, err := New(3)
		require.NoError(t, err)

		msgs := messages(3)
		require.Equal(t, core.OfferAccepted, b.TryOffer(msgs))

		ctx := context.Background()
		for i := range msgs {
			got, err := b.Next(ctx)
			require.NoError(t, err)
			assert.Same(t, msgs[i], got)
		}
		assert.Equal(t, 3, b.FreeSpace())
		assert.Equal(t, uint64(3), b.Stats().TotalDequeued)
	})

	t.Run("BlocksUntilOffer", func(t *testing.T) {
		b, err := New(2)
		require.NoError(t, err)

		done := make(chan *gelf.Message, 1)
		go func() {
			msg, _ := b.Next(context.Background())
			done <- msg
		}()

		select {
		case <-done:
			t.Fatal("Next returned before any offer")
		case <-time.After(20 * time.Millisecond):
		}

		msgs := messages(1)
		require.Equal(t, core.OfferAccepted, b.TryOffer(msgs))

		select {
		case got := <-done:
			assert.Same(t, msgs[0], got)
		case <-time.After(time.Second):
			t.Fatal("Next did not wake up")
		}
	})

	t.Run("ContextCancel", func(t *testing.T) {
		b, err := New(1)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err = b.Next(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestProcessBuffer_ConcurrentOffers(t *testing.T) {
	const (
		capacity  = 100
		producers = 16
		batchSize = 7
	)

	b, err := New(capacity)
	require.NoError(t, err)

	var accepted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.TryOffer(messages(batchSize)) == core.OfferAccepted {
				accepted.Add(batchSize)
			}
		}()
	}
	wg.Wait()

	// Never admits past capacity, and admitted slots match queued messages
	assert.LessOrEqual(t, accepted.Load(), int64(capacity))
	assert.Equal(t, int(accepted.Load()), b.Len())
	assert.Equal(t, capacity-int(accepted.Load()), b.FreeSpace())
	assert.Equal(t, int64(capacity/batchSize*batchSize), accepted.Load())
}
