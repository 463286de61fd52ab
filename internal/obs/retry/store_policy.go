package retry

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
)

// StorePolicy retries only infrastructure failures from the credential
// store, with a small fixed budget. Everything in the auth taxonomy
// (bad credentials, expired, reused, ...) is final and must not be retried.
func StorePolicy(name string, log *zap.Logger) Policy {
	return Policy{
		Name:     name,
		Attempts: 3,
		Backoff:  ExpoJitter{Base: 50 * time.Millisecond, Max: time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return errors.Is(err, token.ErrStoreUnavailable)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("store retry", zap.String("op", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
	}
}
