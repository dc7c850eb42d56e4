package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type codedError struct{ code int }

func (e codedError) Error() string { return fmt.Sprintf("sqlite error %d", e.code) }
func (e codedError) Code() int     { return e.code }

func TestIsContention(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy code", codedError{code: 5}, true},
		{"busy snapshot extended code", codedError{code: 517}, true},
		{"locked code", codedError{code: 6}, true},
		{"wrapped busy", fmt.Errorf("begin tx: %w", codedError{code: 5}), true},
		{"message fallback", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"constraint", codedError{code: 2067}, false},
		{"plain", errors.New("no such table"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsContention(tt.err); got != tt.want {
				t.Fatalf("IsContention(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(codedError{code: sqliteConstraintUnique}) {
		t.Fatal("expected extended unique code to match")
	}
	if !isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: manifests.number (2067)")) {
		t.Fatal("expected message fallback to match")
	}
	if isUniqueViolation(codedError{code: 787}) {
		t.Fatal("foreign key violation is not a duplicate")
	}
}

func TestRetryPolicyBackoffSchedule(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, InitialBackoff: 100 * time.Millisecond, Multiplier: 2, MaxBackoff: 300 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, expected := range want {
		if got := policy.Backoff(i + 1); got != expected {
			t.Fatalf("Backoff(%d) = %v, want %v", i+1, got, expected)
		}
	}
}

func TestRetryPolicyRetriesTransientErrors(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 4, InitialBackoff: time.Millisecond, Multiplier: 2}
	calls := 0
	retries := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return codedError{code: sqliteBusyCode}
		}
		return nil
	}, func(int, error) { retries++ })
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 || retries != 2 {
		t.Fatalf("expected 3 calls and 2 retries, got %d and %d", calls, retries)
	}
}

func TestRetryPolicyExhaustionWrapsOriginal(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	calls := 0
	busy := codedError{code: sqliteBusyCode}
	err := policy.Do(context.Background(), func() error {
		calls++
		return busy
	}, nil)
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if !errors.Is(err, ErrContention) {
		t.Fatalf("expected ErrContention, got %v", err)
	}
	var coded codedError
	if !errors.As(err, &coded) || coded.code != sqliteBusyCode {
		t.Fatalf("expected original error in chain, got %v", err)
	}
}

func TestRetryPolicyDoesNotRetryPermanentErrors(t *testing.T) {
	policy := DefaultRetryPolicy()
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return ErrDuplicateKey
	}, nil)
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if !errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrContention) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRetryPolicyHonoursCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := policy.Do(ctx, func() error {
		calls++
		cancel()
		return codedError{code: sqliteBusyCode}
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one attempt before cancellation, got %d", calls)
	}
}
