package supersede

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginSupersedesPrevious(t *testing.T) {
	t.Parallel()

	c := New()
	ctx1, first := c.Begin(context.Background(), "session-a")
	ctx2, second := c.Begin(context.Background(), "session-a")
	defer second.Release()

	assert.True(t, first.Superseded())
	assert.ErrorIs(t, first.Err(), ErrSuperseded)
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.ErrorIs(t, context.Cause(ctx1), ErrSuperseded)

	assert.False(t, second.Superseded())
	assert.NoError(t, second.Err())
	assert.NoError(t, ctx2.Err())

	first.Release()
	assert.Equal(t, 1, c.Len(), "releasing a superseded ticket keeps the newer one")
}

func TestKeysAreIndependent(t *testing.T) {
	t.Parallel()

	c := New()
	_, a := c.Begin(context.Background(), "a")
	_, b := c.Begin(context.Background(), "b")

	assert.False(t, a.Superseded())
	assert.False(t, b.Superseded())
	assert.Equal(t, 2, c.Len())

	a.Release()
	b.Release()
	b.Release()
	assert.Equal(t, 0, c.Len())
}

func TestSettle(t *testing.T) {
	t.Parallel()

	t.Run("survivor settles", func(t *testing.T) {
		t.Parallel()
		c := New()
		ctx, tk := c.Begin(context.Background(), "k")
		defer tk.Release()

		assert.NoError(t, tk.Settle(ctx, 5*time.Millisecond))
	})

	t.Run("newer request during window", func(t *testing.T) {
		t.Parallel()
		c := New()
		ctx, tk := c.Begin(context.Background(), "k")
		defer tk.Release()

		done := make(chan error, 1)
		go func() { done <- tk.Settle(ctx, time.Second) }()

		_, newer := c.Begin(context.Background(), "k")
		defer newer.Release()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrSuperseded)
		case <-time.After(2 * time.Second):
			t.Fatal("Settle did not return after being superseded")
		}
	})

	t.Run("parent context cancelled", func(t *testing.T) {
		t.Parallel()
		c := New()
		parent, cancel := context.WithCancel(context.Background())
		ctx, tk := c.Begin(parent, "k")
		defer tk.Release()

		cancel()
		err := tk.Settle(ctx, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, ErrSuperseded))
	})

	t.Run("zero window", func(t *testing.T) {
		t.Parallel()
		c := New()
		ctx, tk := c.Begin(context.Background(), "k")
		defer tk.Release()

		assert.NoError(t, tk.Settle(ctx, 0))
	})
}

func TestOnlyLatestSurvivesBurst(t *testing.T) {
	t.Parallel()

	c := New()
	const n = 20

	tickets := make([]*Ticket, n)
	ctxs := make([]context.Context, n)
	for i := range n {
		ctxs[i], tickets[i] = c.Begin(context.Background(), "typing")
	}

	var wg sync.WaitGroup
	results := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = tickets[i].Settle(ctxs[i], 10*time.Millisecond)
		}(i)
	}
	wg.Wait()

	for i := range n - 1 {
		assert.ErrorIs(t, results[i], ErrSuperseded, "ticket %d", i)
	}
	require.NoError(t, results[n-1])

	for _, tk := range tickets {
		tk.Release()
	}
	assert.Equal(t, 0, c.Len())
}
