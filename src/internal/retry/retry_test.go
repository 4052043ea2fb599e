// FILE: scribelog/src/internal/retry/retry_test.go
package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleeper records requested sleeps without sleeping
type recordingSleeper struct {
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(d time.Duration) {
	s.sleeps = append(s.sleeps, d)
}

func testPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		MinBackoff: 100 * time.Millisecond,
		MaxBackoff: 30 * time.Second,
	}
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy.Validate())

	tests := []struct {
		name   string
		policy Policy
	}{
		{"ZeroRetries", Policy{MaxRetries: 0, MinBackoff: time.Millisecond, MaxBackoff: time.Second}},
		{"ZeroMinBackoff", Policy{MaxRetries: 1, MinBackoff: 0, MaxBackoff: time.Second}},
		{"MaxBelowMin", Policy{MaxRetries: 1, MinBackoff: time.Second, MaxBackoff: time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.policy.Validate())
			_, err := New(tt.policy, nil)
			assert.Error(t, err)
		})
	}
}

// doubleCapped is the reference schedule step: double, capped at max
func doubleCapped(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max || next < current {
		return max
	}
	return next
}

func TestBackoff_Schedule(t *testing.T) {
	p := testPolicy(50)
	b := NewBackoff(p)

	want := p.MinBackoff
	prev := time.Duration(0)
	for i := 0; i < 40; i++ {
		got := b.Current()
		assert.Equal(t, want, got, "step %d", i)
		assert.GreaterOrEqual(t, got, prev, "non-decreasing")
		assert.LessOrEqual(t, got, p.MaxBackoff, "bounded")

		prev = got
		want = doubleCapped(want, p.MaxBackoff)
		b.Advance()
	}
	assert.Equal(t, p.MaxBackoff, b.Current())

	b.Reset()
	assert.Equal(t, 100*time.Millisecond, b.Current())
	assert.Equal(t, 200*time.Millisecond, b.Advance())
	assert.Equal(t, 400*time.Millisecond, b.Advance())

	b.Reset()
	assert.Equal(t, p.MinBackoff, b.Current())
}

func TestRetrier_Do(t *testing.T) {
	t.Run("ImmediateSuccess", func(t *testing.T) {
		sleeper := &recordingSleeper{}
		r, err := New(testPolicy(5), sleeper)
		require.NoError(t, err)

		res := r.Do(func(st State) (bool, error) { return true, nil })
		assert.True(t, res.Succeeded)
		assert.Equal(t, 1, res.Attempts)
		assert.Empty(t, sleeper.sleeps)
	})

	t.Run("SuccessOnThirdAttempt", func(t *testing.T) {
		sleeper := &recordingSleeper{}
		r, err := New(testPolicy(5), sleeper)
		require.NoError(t, err)

		var seen []State
		res := r.Do(func(st State) (bool, error) {
			seen = append(seen, st)
			return st.Attempt == 2, nil
		})

		assert.True(t, res.Succeeded)
		assert.Equal(t, 3, res.Attempts)
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.sleeps)
		require.Len(t, seen, 3)
		assert.Equal(t, 400*time.Millisecond, seen[2].Backoff)
	})

	t.Run("ExhaustedKeepsLastError", func(t *testing.T) {
		sleeper := &recordingSleeper{}
		r, err := New(testPolicy(4), sleeper)
		require.NoError(t, err)

		errFirst := errors.New("connection refused")
		calls := 0
		res := r.Do(func(st State) (bool, error) {
			calls++
			if st.Attempt == 0 {
				return false, errFirst
			}
			// Later soft rejections must not clear the captured error
			assert.ErrorIs(t, st.LastErr, errFirst)
			return false, nil
		})

		assert.False(t, res.Succeeded)
		assert.Equal(t, 4, calls)
		assert.Equal(t, 4, res.Attempts)
		assert.ErrorIs(t, res.LastErr, errFirst)
		assert.Len(t, sleeper.sleeps, 4)
	})

	t.Run("ExhaustedSoftOnly", func(t *testing.T) {
		sleeper := &recordingSleeper{}
		r, err := New(testPolicy(3), sleeper)
		require.NoError(t, err)

		res := r.Do(func(st State) (bool, error) { return false, nil })
		assert.False(t, res.Succeeded)
		assert.Equal(t, 3, res.Attempts)
		assert.NoError(t, res.LastErr)
	})

	t.Run("SleepsCapped", func(t *testing.T) {
		sleeper := &recordingSleeper{}
		r, err := New(Policy{MaxRetries: 6, MinBackoff: time.Second, MaxBackoff: 5 * time.Second}, sleeper)
		require.NoError(t, err)

		r.Do(func(st State) (bool, error) { return false, nil })
		assert.Equal(t, []time.Duration{
			time.Second, 2 * time.Second, 4 * time.Second,
			5 * time.Second, 5 * time.Second, 5 * time.Second,
		}, sleeper.sleeps)
	})
}
