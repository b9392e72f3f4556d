package llm

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// warmupDelay is the fixed wait before the single cold-start retry.
const warmupDelay = 20 * time.Second

// retryOnceOnWarming invokes op and, if it fails with ClassModelWarming,
// waits delay and retries the identical operation exactly once. Every other
// failure class is permanent and returns immediately. The retry bound lives
// here, in one auditable place, so no adapter can stall on a model that never
// finishes loading.
func retryOnceOnWarming(ctx context.Context, delay time.Duration, op func() (*GenerateResponse, error)) (*GenerateResponse, error) {
	var resp *GenerateResponse

	attempt := func() error {
		r, err := op()
		if err != nil {
			if IsClass(err, ClassModelWarming) {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), 1),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}
	return resp, nil
}
