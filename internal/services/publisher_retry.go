package services

import (
	"context"
	"time"

	. "aktis-collector-monday/internal/common"
	. "aktis-collector-monday/internal/interfaces"
	"aktis-collector-monday/internal/models"

	"github.com/sethvargo/go-retry"
	"github.com/ternarybob/arbor"
)

// RetryingPublisher re-runs the inner publisher's whole read-then-write
// sequence when it reports a conflict. Every other error stops immediately.
type RetryingPublisher struct {
	inner   Publisher
	retries uint64
	backoff time.Duration
	logger  arbor.ILogger
}

// NewRetryingPublisher wraps inner with up to retries extra attempts
func NewRetryingPublisher(inner Publisher, retries int, backoff time.Duration, logger arbor.ILogger) *RetryingPublisher {
	if retries < 0 {
		retries = 0
	}
	return &RetryingPublisher{
		inner:   inner,
		retries: uint64(retries),
		backoff: backoff,
		logger:  logger,
	}
}

func (rp *RetryingPublisher) Name() string {
	return rp.inner.Name()
}

func (rp *RetryingPublisher) Publish(ctx context.Context, path string, payload []byte) (*models.PublishResult, error) {
	var result *models.PublishResult
	attempt := 0

	backoff := retry.WithMaxRetries(rp.retries, retry.NewConstant(rp.backoffOrMinimum()))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		published, err := rp.inner.Publish(ctx, path, payload)
		if err != nil {
			if IsConflict(err) {
				rp.logger.Warn().Err(err).Int("attempt", attempt).Str("path", path).Msg("Publish conflict, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		result = published
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (rp *RetryingPublisher) backoffOrMinimum() time.Duration {
	if rp.backoff <= 0 {
		return time.Millisecond
	}
	return rp.backoff
}
