package circuitbreaker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fail(t *testing.T, b *Breaker) {
	t.Helper()
	adm, err := b.Allow()
	require.NoError(t, err)
	adm.Done(false)
}

func succeed(t *testing.T, b *Breaker) {
	t.Helper()
	adm, err := b.Allow()
	require.NoError(t, err)
	adm.Done(true)
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("openai", Config{FailureThreshold: 3, OpenDuration: time.Minute})

	fail(t, b)
	fail(t, b)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.ConsecutiveFailures())

	fail(t, b)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Eligible())

	_, err := b.Allow()
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	b := New("openai", Config{FailureThreshold: 3, OpenDuration: time.Minute})

	fail(t, b)
	fail(t, b)
	succeed(t, b)
	assert.Equal(t, 0, b.ConsecutiveFailures())

	fail(t, b)
	fail(t, b)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	b := New("openai", Config{FailureThreshold: 1, OpenDuration: 20 * time.Millisecond})

	fail(t, b)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Eligible())

	var admitted atomic.Int32
	var wg sync.WaitGroup
	admissions := make(chan *Admission, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adm, err := b.Allow()
			if err == nil {
				admitted.Add(1)
				admissions <- adm
				return
			}
			assert.ErrorIs(t, err, ErrTrialInFlight)
		}()
	}
	wg.Wait()
	close(admissions)

	assert.Equal(t, int32(1), admitted.Load())
	for adm := range admissions {
		adm.Done(true)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	b := New("openai", Config{FailureThreshold: 2, OpenDuration: 20 * time.Millisecond})

	fail(t, b)
	fail(t, b)
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	opened := b.LastStateChange()
	fail(t, b)
	assert.Equal(t, StateOpen, b.State())
	assert.True(t, b.LastStateChange().After(opened) || b.LastStateChange().Equal(opened))

	_, err := b.Allow()
	assert.ErrorIs(t, err, ErrOpen)
}

func TestAdmission_ReleaseKeepsCounter(t *testing.T) {
	b := New("openai", Config{FailureThreshold: 2, OpenDuration: time.Minute})

	fail(t, b)
	for i := 0; i < 5; i++ {
		adm, err := b.Allow()
		require.NoError(t, err)
		adm.Release()
	}

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 1, b.ConsecutiveFailures())
}

func TestAdmission_SettlesOnce(t *testing.T) {
	b := New("openai", Config{FailureThreshold: 1, OpenDuration: time.Minute})

	adm, err := b.Allow()
	require.NoError(t, err)
	adm.Release()
	adm.Done(false)

	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.ConsecutiveFailures())
}

func TestAdmission_ReleasedTrialReopens(t *testing.T) {
	b := New("openai", Config{FailureThreshold: 1, OpenDuration: 20 * time.Millisecond})

	fail(t, b)
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	adm, err := b.Allow()
	require.NoError(t, err)
	adm.Release()

	assert.Equal(t, StateOpen, b.State())
	_, err = b.Allow()
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_StateChangeListener(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	b := New("anthropic", Config{FailureThreshold: 1, OpenDuration: 10 * time.Millisecond},
		WithStateChange(func(name string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		}))

	fail(t, b)
	time.Sleep(20 * time.Millisecond)
	succeed(t, b)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"anthropic:closed->open",
		"anthropic:open->half-open",
		"anthropic:half-open->closed",
	}, transitions)
}

func TestBreaker_ThresholdFloor(t *testing.T) {
	b := New("generic", Config{FailureThreshold: 0, OpenDuration: time.Minute})
	assert.Equal(t, 1, b.Config().FailureThreshold)

	fail(t, b)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_Snapshot(t *testing.T) {
	b := New("openai", Config{FailureThreshold: 5, OpenDuration: 30 * time.Second})
	fail(t, b)

	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, "closed", snap.StateName)
	assert.Equal(t, 1, snap.ConsecutiveFailures)
	assert.Equal(t, 5, snap.FailureThreshold)
	assert.Equal(t, "30s", snap.OpenDuration)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
