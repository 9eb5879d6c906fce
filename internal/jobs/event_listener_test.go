package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingPoller struct {
	calls int32
	err   error
}

func (p *countingPoller) PollEvents(ctx context.Context) error {
	atomic.AddInt32(&p.calls, 1)
	return p.err
}

func TestEventListenerPollsUntilCancelled(t *testing.T) {
	poller := &countingPoller{err: errors.New("rpc timeout")}
	l := NewEventListener(poller, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&poller.calls) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestEventListenerFirstPollIsImmediate(t *testing.T) {
	poller := &countingPoller{}
	l := NewEventListener(poller, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&poller.calls) == 1 }, time.Second, 5*time.Millisecond)
}

func TestNewEventListenerDefaultsInterval(t *testing.T) {
	assert.Equal(t, defaultPollInterval, NewEventListener(&countingPoller{}, 0).Interval)
}
