package service_test

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// fastBackoff replaces the production retry policy so failure-path tests
// finish instantly.
func fastBackoff() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewConstant(time.Millisecond))
}
