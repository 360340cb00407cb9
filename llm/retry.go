package llm

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

// RetryConfig holds retry behaviour for rate-limited requests.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first
	// request, so a region costs at most 1+MaxRetries requests.
	MaxRetries int

	// DefaultWait is used when the 429 body carries no usable
	// "retry in Ns" suggestion.
	DefaultWait time.Duration

	// WaitMargin is added on top of the server-suggested wait so a
	// retry never lands just inside the closing rate-limit window.
	WaitMargin time.Duration
}

// DefaultRetryConfig returns retry defaults tuned to the free-tier quotas
// of the supported search providers.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		DefaultWait: 20 * time.Second,
		WaitMargin:  2 * time.Second,
	}
}

// retryHintPattern matches the wait suggestion some providers embed in
// 429 error bodies, e.g. "Please retry in 7.5s".
var retryHintPattern = regexp.MustCompile(`retry in (\d+(?:\.\d+)?)s`)

// ParseRetryHint extracts a suggested wait duration from a rate-limit
// error body. Fractional seconds are rounded up.
func ParseRetryHint(body string) (time.Duration, bool) {
	m := retryHintPattern.FindStringSubmatch(body)
	if len(m) < 2 {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(math.Ceil(secs)) * time.Second, true
}

// backoffFor resolves the wait before the next attempt: the server's
// suggestion when present, the configured default otherwise, plus margin.
func (c RetryConfig) backoffFor(hint time.Duration) time.Duration {
	wait := c.DefaultWait
	if hint > 0 {
		wait = hint
	}
	return wait + c.WaitMargin
}
