// Package retry wraps a single provider call in a bounded retry loop with
// exponential backoff and jitter. It is provider-agnostic: the only response
// shape it understands is the HTTP status code and the generic embedded
// error code envelope.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/ykurilov/banana-editor/internal/providers/image"
)

const jitterWindow = 200 * time.Millisecond

// Options bounds the retry loop. Total attempts = 1 + MaxRetries.
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultOptions mirrors the upstream call budget used by the edit pipeline.
func DefaultOptions(maxRetries int) Options {
	return Options{
		MaxRetries: maxRetries,
		BaseDelay:  400 * time.Millisecond,
		MaxDelay:   2 * time.Second,
	}
}

// Call performs one upstream request.
type Call func(ctx context.Context) (*image.Response, error)

// Do invokes call until it yields a non-retryable outcome or the attempt
// budget is spent. A retryable outcome is an HTTP 429 or 5xx status, an
// embedded error code in the same ranges, or a failed call (network error,
// timeout, non-JSON body). When attempts run out the last outcome is
// returned as-is: the final response for status-level failures, the final
// error for call failures.
func Do(ctx context.Context, call Call, opts Options) (*image.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := call(ctx)
		if err == nil && !retryable(resp) {
			return resp, nil
		}
		if attempt >= opts.MaxRetries {
			if err != nil {
				return nil, err
			}
			return resp, nil
		}
		select {
		case <-time.After(Backoff(attempt, opts.BaseDelay, opts.MaxDelay)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func retryable(resp *image.Response) bool {
	if resp == nil {
		return true
	}
	if isRetryCode(resp.StatusCode) {
		return true
	}
	return isRetryCode(resp.ErrorCode())
}

func isRetryCode(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}

// Backoff returns the sleep before retrying attempt k (0-indexed):
// min(base*2^k, max) plus up to jitterWindow of random jitter.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	delay := base << uint(attempt)
	if delay > max || delay <= 0 {
		delay = max
	}
	return delay + time.Duration(rand.Int63n(int64(jitterWindow)))
}
