package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Do runs fn, retrying up to maxRetries times while shouldRetry approves the error.
// The delay doubles after each failed attempt. A nil shouldRetry retries every error.
func Do(ctx context.Context, maxRetries int, delay time.Duration, shouldRetry func(error) bool, fn func(ctx context.Context) error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = delay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = delay << 10
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxRetries)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err != nil && shouldRetry != nil && !shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   wait.String(),
			"error":   err,
		}).Warn("Operation failed, retrying")
	}
	return backoff.RetryNotify(operation, policy, notify)
}

var permanentTxErrors = []string{
	"insufficient funds",
	"execution reverted",
	"user rejected",
	"invalid sender",
	"gas required exceeds allowance",
}

var transientTxErrors = []string{
	"replacement fee too low",
	"replacement transaction underpriced",
	"nonce too low",
	"nonce has already been used",
	"already known",
	"timeout",
	"connection refused",
	"connection reset",
	"too many requests",
	"bad gateway",
	"service unavailable",
	"internal server error",
}

// ShouldRetryTransaction classifies errors returned while submitting a transaction.
// Unknown errors are retried.
func ShouldRetryTransaction(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range transientTxErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	for _, s := range permanentTxErrors {
		if strings.Contains(msg, s) {
			return false
		}
	}
	return true
}
