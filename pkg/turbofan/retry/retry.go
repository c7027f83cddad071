// Package retry runs an operation again after transient failures, with a fixed delay between
// attempts and a bound on the number of attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

// Policy bounds retries. MaxRetries counts attempts after the first, so the operation runs at
// most MaxRetries+1 times.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
	// OnRetry, if set, is called before each wait with the failed attempt number and its error
	OnRetry func(attempt int, err error)
}

// OnTransient calls op until it succeeds, returns an error isTransient rejects, or the policy is
// exhausted. The last error from op is returned, never a generic timeout.
func OnTransient(ctx context.Context, policy Policy, isTransient func(error) bool, op func(context.Context) error) error {
	backoff := wait.Backoff{
		Duration: policy.Delay,
		Factor:   1,
		Steps:    max(policy.MaxRetries, 0) + 1,
	}

	attempt := 0
	var lastErr error
	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		attempt++
		lastErr = op(ctx)
		if lastErr == nil {
			return true, nil
		}
		if !isTransient(lastErr) {
			return false, lastErr
		}
		if attempt <= policy.MaxRetries {
			klog.InfoS("Transient failure, retrying",
				"attempt", attempt,
				"maxAttempts", policy.MaxRetries+1,
				"delay", policy.Delay,
				"error", lastErr)
			if policy.OnRetry != nil {
				policy.OnRetry(attempt, lastErr)
			}
		}
		return false, nil
	})

	if errors.Is(err, wait.ErrWaitTimeout) && lastErr != nil {
		klog.ErrorS(lastErr, "Giving up after transient failures", "attempts", attempt)
		return lastErr
	}
	return err
}
