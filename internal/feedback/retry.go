package feedback

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"resume-feedback/internal/pipeline"
	"resume-feedback/internal/shared/telemetry"
)

// DefaultBaseDelay is the delay before the first retry.
const DefaultBaseDelay = 300 * time.Millisecond

type retrying struct {
	base      pipeline.FeedbackService
	retries   int
	baseDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps base so transient failures are retried up to retries times,
// doubling the delay from baseDelay. retries <= 0 returns base unchanged.
func WithRetry(base pipeline.FeedbackService, retries int, baseDelay time.Duration) pipeline.FeedbackService {
	if base == nil || retries <= 0 {
		return base
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &retrying{base: base, retries: retries, baseDelay: baseDelay, sleep: sleepContext}
}

func (r *retrying) Feedback(ctx context.Context, resumePath, instructions string) (*pipeline.Response, error) {
	resp, err := r.base.Feedback(ctx, resumePath, instructions)
	delay := r.baseDelay
	for attempt := 1; attempt <= r.retries && ShouldRetry(err); attempt++ {
		telemetry.Warn("feedback.retry", map[string]any{
			"attempt":     attempt,
			"resume_path": resumePath,
			"error":       err.Error(),
		})
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
		delay *= 2
		resp, err = r.base.Feedback(ctx, resumePath, instructions)
	}
	return resp, err
}

// ShouldRetry reports whether err looks transient.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "http status 429") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
