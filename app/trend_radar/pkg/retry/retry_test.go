package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fast() []Option {
	return []Option{WithInitialDelay(time.Millisecond), WithMaxDelay(5 * time.Millisecond)}
}

func TestDo_FirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	tests := []struct {
		name       string
		failUntil  int
		maxRetries int
		wantCalls  int
		wantErr    bool
	}{
		{"第二次成功", 2, 3, 2, false},
		{"最后一次成功", 4, 3, 4, false},
		{"全部失败", 10, 3, 4, true},
		{"不重试", 10, 0, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			var retried []int
			opts := append(fast(), WithMaxRetries(tt.maxRetries), OnRetry(func(attempt int, err error) {
				retried = append(retried, attempt)
				assert.ErrorIs(t, err, errBoom)
			}))
			err := Do(context.Background(), func(context.Context) error {
				calls++
				if calls < tt.failUntil {
					return errBoom
				}
				return nil
			}, opts...)

			assert.Equal(t, tt.wantCalls, calls)
			assert.Len(t, retried, tt.wantCalls-1)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBoom)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDo_Permanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errBoom)
	}, fast()...)

	assert.Equal(t, 1, calls)
	assert.Equal(t, errBoom, err)
	assert.False(t, IsPermanent(err))
	assert.True(t, IsPermanent(Permanent(errBoom)))
	assert.Nil(t, Permanent(nil))
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errBoom
	}, WithInitialDelay(time.Hour))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_NilFunc(t *testing.T) {
	assert.Error(t, Do(context.Background(), nil))
}

func TestBackoff(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, time.Second, backoff(1, cfg))
	assert.Equal(t, 2*time.Second, backoff(2, cfg))
	assert.Equal(t, 4*time.Second, backoff(3, cfg))
	assert.Equal(t, 30*time.Second, backoff(10, cfg))
}
