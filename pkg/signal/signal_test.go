package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/value"
)

func stateOf(s string) value.State {
	b := value.NewBuilder()
	b.Add(value.OIDString, value.String(s))
	return b.Finish()
}

func TestSubscribeObservesCurrentValue(t *testing.T) {
	sig := New()
	sig.Set(stateOf("free"))

	sub := sig.Subscribe()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(stateOf("free")))
}

func TestNextBlocksUntilSet(t *testing.T) {
	sig := New()
	sub := sig.Subscribe()

	done := make(chan value.State, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		v, err := sub.Next(ctx)
		if err == nil {
			done <- v
		}
	}()

	time.Sleep(20 * time.Millisecond)
	sig.Set(stateOf("in-use"))

	select {
	case v := <-done:
		assert.True(t, v.Equal(stateOf("in-use")))
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not unblock after Set")
	}
}

// TestCoalescing verifies that several Sets between Next calls coalesce
// to the latest value only (spec.md §4.5).
func TestCoalescing(t *testing.T) {
	sig := New()
	sig.Set(stateOf("a"))
	sig.Set(stateOf("b"))
	sig.Set(stateOf("c"))

	sub := sig.Subscribe()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(stateOf("c")))
}

func TestSetNeverBlocksProducer(t *testing.T) {
	sig := New()
	// No subscribers at all; Set must return immediately regardless.
	done := make(chan struct{})
	go func() {
		sig.Set(stateOf("x"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Set blocked with no subscribers")
	}
}

func TestCloseTerminatesSubscriptions(t *testing.T) {
	sig := New()
	sig.Set(stateOf("a"))
	sub := sig.Subscribe()

	ctx := context.Background()
	_, err := sub.Next(ctx)
	require.NoError(t, err)

	sig.Close()
	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, bffherr.ErrClosed)
}

func TestDroppingSubscriberDoesNotAffectOthers(t *testing.T) {
	sig := New()
	sig.Set(stateOf("a"))

	_ = sig.Subscribe() // dropped immediately
	sub2 := sig.Subscribe()

	sig.Set(stateOf("b"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := sub2.Next(ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(stateOf("b")))
}
