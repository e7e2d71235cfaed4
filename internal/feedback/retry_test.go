package feedback

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"resume-feedback/internal/pipeline"
)

type scriptedService struct {
	errs  []error
	calls int
}

func (s *scriptedService) Feedback(ctx context.Context, resumePath, instructions string) (*pipeline.Response, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &pipeline.Response{Message: pipeline.Message{Content: pipeline.TextContent(`{"score":1}`)}}, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestWithRetryZeroReturnsBase(t *testing.T) {
	base := &scriptedService{}
	if got := WithRetry(base, 0, time.Millisecond); got != pipeline.FeedbackService(base) {
		t.Fatalf("expected base service to be returned unchanged")
	}
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	base := &scriptedService{errs: []error{fmt.Errorf("openai http status 503: overloaded")}}
	svc := WithRetry(base, 2, time.Millisecond).(*retrying)
	svc.sleep = noSleep

	resp, err := svc.Feedback(context.Background(), "k", "i")
	if err != nil || resp == nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", base.calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	base := &scriptedService{errs: []error{errors.New("openai http status 401: bad key")}}
	svc := WithRetry(base, 3, time.Millisecond).(*retrying)
	svc.sleep = noSleep

	if _, err := svc.Feedback(context.Background(), "k", "i"); err == nil {
		t.Fatalf("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("expected no retries, got %d calls", base.calls)
	}
}

func TestRetryGivesUpAfterBudget(t *testing.T) {
	timeout := fmt.Errorf("openai request timeout: %w", context.DeadlineExceeded)
	base := &scriptedService{errs: []error{timeout, timeout, timeout, timeout}}
	svc := WithRetry(base, 2, time.Millisecond).(*retrying)
	var delays []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	if _, err := svc.Feedback(context.Background(), "k", "i"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected last error, got %v", err)
	}
	if base.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", base.calls)
	}
	if len(delays) != 2 || delays[1] != 2*delays[0] {
		t.Fatalf("expected doubling delays, got %v", delays)
	}
}

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{ErrNotConfigured, false},
		{context.DeadlineExceeded, true},
		{errors.New("read tcp: connection reset by peer"), true},
		{errors.New("openai http status 429: rate limited"), true},
		{errors.New("openai http status 400: bad request"), false},
	}
	for _, tc := range cases {
		if got := ShouldRetry(tc.err); got != tc.want {
			t.Fatalf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestPlaceholderFails(t *testing.T) {
	if _, err := (Placeholder{}).Feedback(context.Background(), "k", "i"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
