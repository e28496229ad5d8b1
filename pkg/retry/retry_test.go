package retry

import (
	"context"
	"errors"
	"testing"
	"time"
	apperrors "trimline/pkg/errors"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestRun_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Run(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRun_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := Run(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return apperrors.StorageContention("write conflict", errors.New("WriteConflict"))
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRun_ExhaustionMapsToTemporarilyUnavailable(t *testing.T) {
	calls := 0
	err := Run(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return apperrors.LockTimeout("barber-1")
	})

	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if !apperrors.HasCode(err, apperrors.CodeTemporarilyUnavailable) {
		t.Fatalf("expected TEMPORARILY_UNAVAILABLE, got %v", err)
	}
	// The last transient cause stays reachable for logging.
	if !apperrors.HasCode(errors.Unwrap(apperrors.AsAppError(err)), apperrors.CodeLockTimeout) {
		t.Errorf("expected wrapped LOCK_TIMEOUT cause, got %v", err)
	}
}

func TestRun_NonTransientReturnsImmediately(t *testing.T) {
	calls := 0
	err := Run(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return apperrors.SlotConflict("slot is taken")
	})

	if calls != 1 {
		t.Errorf("expected 1 call for non-transient error, got %d", calls)
	}
	if !apperrors.HasCode(err, apperrors.CodeSlotConflict) {
		t.Errorf("expected SLOT_CONFLICT passed through, got %v", err)
	}
}

func TestRun_PermanentStopsRetryableCode(t *testing.T) {
	calls := 0
	inner := apperrors.VersionConflict("Reservation", "id-1", 2, 5)
	err := Run(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return Permanent(inner)
	})

	if calls != 1 {
		t.Errorf("expected 1 call for permanent error, got %d", calls)
	}
	if !apperrors.HasCode(err, apperrors.CodeVersionConflict) {
		t.Errorf("expected VERSION_CONFLICT surfaced as-is, got %v", err)
	}
	if errors.Is(err, inner) != true {
		t.Errorf("expected the original error back, got %v", err)
	}
}

func TestRun_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := Policy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, policy, func(ctx context.Context) error {
		return apperrors.StorageContention("contended", nil)
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"lock timeout", apperrors.LockTimeout("p"), true},
		{"storage contention", apperrors.StorageContention("c", nil), true},
		{"version conflict", apperrors.VersionConflict("Reservation", "id", 1, 2), true},
		{"slot conflict", apperrors.SlotConflict("taken"), false},
		{"validation", apperrors.Validation("bad", nil), false},
		{"plain error", errors.New("boom"), false},
		{"permanent version conflict", Permanent(apperrors.VersionConflict("Reservation", "id", 1, 2)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackoffDelay_Bounds(t *testing.T) {
	policy := Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}

	for attempt := 1; attempt <= 5; attempt++ {
		for i := 0; i < 50; i++ {
			d := backoffDelay(policy, attempt)

			uncapped := policy.BaseDelay << (attempt - 1)
			ceiling := min(uncapped, policy.MaxDelay)
			if d < ceiling/2 || d > ceiling {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, d, ceiling/2, ceiling)
			}
		}
	}
}
