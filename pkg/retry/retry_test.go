package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, nil, func(ctx context.Context) error {
		calls++
		return errors.New("network down")
	})
	assert.EqualError(t, err, "network down")
	assert.Equal(t, 4, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, ShouldRetryTransaction, func(ctx context.Context) error {
		calls++
		return errors.New("insufficient funds for gas * price + value")
	})
	assert.EqualError(t, err, "insufficient funds for gas * price + value", "permanent errors come back unwrapped")
	assert.Equal(t, 1, calls)
}

func TestDoRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, 5, time.Hour, nil, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("temporary")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestShouldRetryTransaction(t *testing.T) {
	assert.True(t, ShouldRetryTransaction(errors.New("replacement fee too low")))
	assert.True(t, ShouldRetryTransaction(errors.New("nonce too low")))
	assert.True(t, ShouldRetryTransaction(errors.New("502 Bad Gateway")))
	assert.True(t, ShouldRetryTransaction(context.DeadlineExceeded))
	assert.True(t, ShouldRetryTransaction(errors.New("something odd")))

	assert.False(t, ShouldRetryTransaction(errors.New("execution reverted: not owner")))
	assert.False(t, ShouldRetryTransaction(errors.New("insufficient funds for transfer")))
	assert.False(t, ShouldRetryTransaction(errors.New("User rejected the request")))
	assert.False(t, ShouldRetryTransaction(context.Canceled))
	assert.False(t, ShouldRetryTransaction(nil))
}
