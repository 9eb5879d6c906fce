package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultPollInterval = 15 * time.Second

type eventPoller interface {
	PollEvents(ctx context.Context) error
}

// EventListener polls the contracts for new events until its context ends.
type EventListener struct {
	Sync     eventPoller
	Interval time.Duration
}

// NewEventListener creates a listener that polls every interval.
func NewEventListener(sync eventPoller, interval time.Duration) *EventListener {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &EventListener{Sync: sync, Interval: interval}
}

// Run polls once immediately, then on every tick. It blocks until ctx is done.
func (l *EventListener) Run(ctx context.Context) {
	logrus.WithField("interval", l.Interval.String()).Info("Blockchain event listener started")

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	l.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Blockchain event listener stopped")
			return
		case <-ticker.C:
			l.poll(ctx)
		}
	}
}

func (l *EventListener) poll(ctx context.Context) {
	if err := l.Sync.PollEvents(ctx); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Error("Event poll failed")
	}
}
