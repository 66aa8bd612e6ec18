package infra_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotword/internal/infra"
)

func fastBackoff(attempts int) infra.Backoff {
	return infra.Backoff{Attempts: attempts, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Factor: 2}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := infra.Retry(context.Background(), fastBackoff(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("engine not ready")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := infra.Retry(context.Background(), fastBackoff(2), func() error {
		calls++
		return errors.New("still broken")
	})
	if err == nil || err.Error() != "still broken" {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = infra.Retry(context.Background(), infra.Backoff{}, func() error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := infra.Retry(ctx, infra.Backoff{Attempts: 5, Delay: time.Hour}, func() error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
