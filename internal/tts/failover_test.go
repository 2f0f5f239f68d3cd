package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFailoverRequiresBackend(t *testing.T) {
	_, err := NewFailover(nil)
	assert.Error(t, err)
}

func TestFailoverUsesFirstBackend(t *testing.T) {
	a, b := &fakeSynth{name: "a"}, &fakeSynth{name: "b"}
	f, err := NewFailover(nil, a, b)
	require.NoError(t, err)

	require.NoError(t, f.SynthesizeToFile(context.Background(), "<speak/>", "out.mp3"))
	assert.Equal(t, 1, a.callCount())
	assert.Equal(t, 0, b.callCount())
	assert.Equal(t, 0, f.Current())
}

func TestFailoverSticksToNextBackendAfterThrottle(t *testing.T) {
	a := &fakeSynth{name: "a", errs: []error{throttleErr("a")}}
	b := &fakeSynth{name: "b"}
	c := &fakeSynth{name: "c"}
	f, err := NewFailover(nil, a, b, c)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, f.SynthesizeToFile(ctx, "one", "1.mp3"))
	assert.Equal(t, []string{"one"}, b.calls, "same request retried on next backend")
	assert.Equal(t, 1, f.Current())

	require.NoError(t, f.SynthesizeToFile(ctx, "two", "2.mp3"))
	require.NoError(t, f.SynthesizeToFile(ctx, "three", "3.mp3"))

	assert.Equal(t, 1, a.callCount(), "throttled backend never tried again")
	assert.Equal(t, []string{"one", "two", "three"}, b.calls)
	assert.Equal(t, 0, c.callCount())
	assert.Contains(t, f.Name(), "b, 2 of 3")
}

func TestFailoverSkipsSeveralThrottledBackendsInOneCall(t *testing.T) {
	a := &fakeSynth{name: "a", errs: []error{throttleErr("a")}}
	b := &fakeSynth{name: "b", errs: []error{throttleErr("b")}}
	c := &fakeSynth{name: "c"}
	f, err := NewFailover(nil, a, b, c)
	require.NoError(t, err)

	require.NoError(t, f.SynthesizeToFile(context.Background(), "doc", "out.mp3"))
	assert.Equal(t, 2, f.Current())
	assert.Equal(t, []string{"doc"}, c.calls)
}

func TestFailoverPropagatesOtherErrors(t *testing.T) {
	a := &fakeSynth{name: "a", errs: []error{errBoom}}
	b := &fakeSynth{name: "b"}
	f, err := NewFailover(nil, a, b)
	require.NoError(t, err)

	err = f.SynthesizeToFile(context.Background(), "doc", "out.mp3")
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, b.callCount())
	assert.Equal(t, 0, f.Current())

	require.NoError(t, f.SynthesizeToFile(context.Background(), "doc", "out.mp3"))
	assert.Equal(t, 2, a.callCount(), "a non-throttle failure does not switch backends")
}

func TestFailoverExhausted(t *testing.T) {
	a := &fakeSynth{name: "a", errs: []error{throttleErr("a")}}
	b := &fakeSynth{name: "b", errs: []error{throttleErr("b")}}
	f, err := NewFailover(nil, a, b)
	require.NoError(t, err)

	err = f.SynthesizeToFile(context.Background(), "doc", "out.mp3")
	assert.ErrorIs(t, err, ErrBackendsExhausted)
	assert.True(t, IsThrottled(err), "last throttle error stays in the chain")
	assert.Equal(t, 2, f.Current())
	assert.Equal(t, "failover (exhausted)", f.Name())

	err = f.SynthesizeToFile(context.Background(), "again", "out.mp3")
	assert.True(t, errors.Is(err, ErrBackendsExhausted))
	assert.Equal(t, 1, a.callCount())
	assert.Equal(t, 1, b.callCount())
}
